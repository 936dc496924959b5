package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvald/interactions/internal/interactions"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	b, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(b)
}

func TestObserver_RecordsOutcome(t *testing.T) {
	var obs interactions.Observer = Observer{}
	obs.ObserveInteraction(interactions.Outcome{
		Type:     discordgo.InteractionApplicationCommand,
		Status:   http.StatusOK,
		Duration: 3 * time.Millisecond,
	})
	obs.ObserveInteraction(interactions.Outcome{
		Type:   discordgo.InteractionMessageComponent,
		Status: http.StatusNotFound,
		Err:    &interactions.Error{Kind: interactions.KindUnknownTarget, Err: interactions.ErrUnknownCustomID},
	})
	obs.ObserveInteraction(interactions.Outcome{
		Status: http.StatusUnauthorized,
		Err:    &interactions.Error{Kind: interactions.KindAuth, Err: errors.New("bad signature")},
	})
	ObserveTokenRefresh(nil)
	ObserveTokenRefresh(errors.New("down"))

	body := scrape(t)
	assert.Contains(t, body, `interactions_requests_total{outcome="ok",type="command"}`)
	assert.Contains(t, body, `interactions_requests_total{outcome="unknown_target",type="component"}`)
	assert.Contains(t, body, `interactions_requests_total{outcome="unauthorized",type="unknown"}`)
	assert.Contains(t, body, `interactions_signature_total{result="rejected"}`)
	assert.Contains(t, body, `interactions_request_duration_seconds_bucket{type="command"`)
	assert.Contains(t, body, `interactions_token_refresh_total{result="error"} 1`)
	assert.Contains(t, body, `interactions_token_refresh_total{result="ok"} 1`)
	assert.Contains(t, body, "interactions_feed_subscribers")
}

func TestSignatureLabel(t *testing.T) {
	tests := []struct {
		name string
		o    interactions.Outcome
		want string
	}{
		{name: "ok", o: interactions.Outcome{}, want: "ok"},
		{name: "canonicalized", o: interactions.Outcome{Canonicalized: true}, want: "canonicalized"},
		{name: "bypassed", o: interactions.Outcome{Bypassed: true}, want: "bypassed"},
		{name: "rejected", o: interactions.Outcome{Err: &interactions.Error{Kind: interactions.KindAuth}}, want: "rejected"},
		{name: "handler error still verified", o: interactions.Outcome{Err: &interactions.Error{Kind: interactions.KindHandler}}, want: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, signatureLabel(tt.o))
		})
	}
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "ping", TypeLabel(discordgo.InteractionPing))
	assert.Equal(t, "autocomplete", TypeLabel(discordgo.InteractionApplicationCommandAutocomplete))
	assert.Equal(t, "modal_submit", TypeLabel(discordgo.InteractionModalSubmit))
	assert.Equal(t, "unknown", TypeLabel(0))
	assert.Equal(t, "other", TypeLabel(99))
}
