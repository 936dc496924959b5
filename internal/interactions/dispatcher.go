package interactions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rvald/interactions/internal/signature"
)

const contentTypeJSON = "application/json"

// Verifier authenticates the raw request before it is parsed.
type Verifier interface {
	Verify(body []byte, signatureHex, timestamp string) (signature.Result, error)
}

// Request is a transport-neutral inbound interaction request.
type Request struct {
	Body      []byte
	Signature string
	Timestamp string
	// Logger, if set, carries request-scoped attributes such as a request id.
	Logger *slog.Logger
}

// Reply is what the transport writes back.
type Reply struct {
	Status      int
	ContentType string
	Body        []byte
}

// Outcome summarizes one handled request for observers.
type Outcome struct {
	InteractionID string
	Type          discordgo.InteractionType
	Target        string
	Status        int
	Err           error
	Canonicalized bool
	Bypassed      bool
	Duration      time.Duration
}

// Observer is notified after every handled request. Implementations must not
// block.
type Observer interface {
	ObserveInteraction(Outcome)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Outcome)

func (f ObserverFunc) ObserveInteraction(o Outcome) { f(o) }

// Dispatcher verifies, classifies, and routes interactions to handlers.
type Dispatcher struct {
	verifier     Verifier
	commands     *CommandRegistry
	handlers     *HandlerRegistry
	logger       *slog.Logger
	observers    []Observer
	strictMerge  bool
	errorReplies bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observers = append(d.observers, o) }
}

// WithStrictMerge makes RegisterBlueprint fail on name collisions instead
// of overwriting.
func WithStrictMerge(strict bool) Option {
	return func(d *Dispatcher) { d.strictMerge = strict }
}

// WithErrorReplies answers handler failures with an ephemeral error message
// instead of an HTTP 500.
func WithErrorReplies(enabled bool) Option {
	return func(d *Dispatcher) { d.errorReplies = enabled }
}

// New creates a Dispatcher with empty registries.
func New(verifier Verifier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		verifier: verifier,
		commands: NewCommandRegistry(),
		handlers: NewHandlerRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Commands returns the root command registry.
func (d *Dispatcher) Commands() *CommandRegistry { return d.commands }

// Handlers returns the root component handler registry.
func (d *Dispatcher) Handlers() *HandlerRegistry { return d.handlers }

// RegisterCommand adds a command to the root registry.
func (d *Dispatcher) RegisterCommand(cmd *Command) error {
	return d.commands.Register(cmd)
}

// RegisterHandler adds a component or modal handler to the root registry.
func (d *Dispatcher) RegisterHandler(customID string, h HandlerFunc) error {
	return d.handlers.Register(customID, h)
}

// RegisterBlueprint merges bp into the root registries. Collisions are
// last-write-wins and logged, or rejected entirely in strict mode.
func (d *Dispatcher) RegisterBlueprint(bp *Blueprint) error {
	if d.strictMerge {
		cmds := d.commands.Collisions(bp.Commands)
		ids := d.handlers.Collisions(bp.Handlers)
		if len(cmds) > 0 || len(ids) > 0 {
			return &CollisionError{Commands: cmds, Handlers: ids}
		}
	}

	for _, name := range d.commands.Merge(bp.Commands) {
		d.logger.Warn("blueprint overrides registered command", "command", name)
	}
	for _, id := range d.handlers.Merge(bp.Handlers) {
		d.logger.Warn("blueprint overrides registered custom id handler", "custom_id", id)
	}
	return nil
}

// Handle runs the full pipeline for one raw request: verify, parse,
// dispatch, encode. It never panics and always produces a reply.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (reply Reply) {
	start := time.Now()
	logger := req.Logger
	if logger == nil {
		logger = d.logger
	}

	out := Outcome{}
	defer func() {
		out.Duration = time.Since(start)
		for _, o := range d.observers {
			o.ObserveInteraction(out)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("interaction pipeline panicked", "panic", r, "stack", string(debug.Stack()))
			out.Status = http.StatusInternalServerError
			out.Err = &Error{Kind: KindProtocol, Op: "handle", Err: fmt.Errorf("internal error: %v", r)}
			reply = errorReply(out.Status, KindProtocol, errors.New("internal error"))
		}
	}()

	if d.verifier == nil {
		out.Status, out.Err = http.StatusUnauthorized, &Error{Kind: KindAuth, Op: "verify", Err: errors.New("no verifier configured")}
		logger.Error("rejecting interaction: no signature verifier configured")
		return statusReply(out.Status)
	}
	res, err := d.verifier.Verify(req.Body, req.Signature, req.Timestamp)
	if err != nil {
		out.Status, out.Err = http.StatusUnauthorized, &Error{Kind: KindAuth, Op: "verify", Err: err}
		logger.Info("rejected interaction", "reason", err)
		return statusReply(out.Status)
	}
	out.Canonicalized, out.Bypassed = res.Canonicalized, res.Bypassed

	var i discordgo.Interaction
	if len(bytes.TrimSpace(req.Body)) == 0 {
		err = errors.New("empty body")
	} else {
		err = json.Unmarshal(req.Body, &i)
	}
	if err != nil {
		out.Status, out.Err = http.StatusBadRequest, &Error{Kind: KindMalformed, Op: "parse", Err: fmt.Errorf("%w: %v", ErrMalformedRequest, err)}
		logger.Info("malformed interaction body", "error", err)
		return statusReply(out.Status)
	}
	out.InteractionID, out.Type, out.Target = i.ID, i.Type, targetOf(&i)

	resp, err := d.dispatch(ctx, &i, logger)
	if err != nil {
		out.Err = err
		kind := KindOf(err)
		if kind == KindHandler && d.errorReplies {
			resp = failureResponse(i.Type)
		} else {
			out.Status = kind.Status()
			logDispatchError(logger, &i, err)
			return errorReply(out.Status, kind, err)
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		out.Status, out.Err = http.StatusInternalServerError, &Error{Kind: KindProtocol, Op: "encode", Err: err}
		logger.Error("encode interaction response", "error", err)
		return errorReply(out.Status, KindProtocol, out.Err)
	}

	out.Status = http.StatusOK
	logger.Debug("interaction handled",
		"interaction_id", i.ID, "type", i.Type.String(), "target", out.Target, "response_type", resp.Type)
	return Reply{Status: http.StatusOK, ContentType: contentTypeJSON, Body: body}
}

// Dispatch routes an already verified interaction and returns the response
// to send. Handler panics are recovered and returned as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	return d.dispatch(ctx, i, d.logger)
}

func (d *Dispatcher) dispatch(ctx context.Context, i *discordgo.Interaction, logger *slog.Logger) (*discordgo.InteractionResponse, error) {
	switch i.Type {
	case discordgo.InteractionPing:
		return pong(), nil
	case discordgo.InteractionApplicationCommand:
		return d.runCommand(ctx, i, logger)
	case discordgo.InteractionMessageComponent:
		data, ok := i.Data.(discordgo.MessageComponentInteractionData)
		if !ok {
			return nil, malformed("component")
		}
		return d.runHandler(ctx, i, data.CustomID, "component", logger)
	case discordgo.InteractionApplicationCommandAutocomplete:
		return d.runAutocomplete(ctx, i, logger)
	case discordgo.InteractionModalSubmit:
		data, ok := i.Data.(discordgo.ModalSubmitInteractionData)
		if !ok {
			return nil, malformed("modal")
		}
		return d.runHandler(ctx, i, data.CustomID, "modal", logger)
	default:
		return nil, &Error{Kind: KindUnsupported, Op: "classify", Err: fmt.Errorf("%w: %d", ErrUnsupportedType, i.Type)}
	}
}

func (d *Dispatcher) runCommand(ctx context.Context, i *discordgo.Interaction, logger *slog.Logger) (*discordgo.InteractionResponse, error) {
	ic, err := d.commandContext(i, "command", logger)
	if err != nil {
		return nil, err
	}
	if ic.Command.Handler == nil {
		return nil, &Error{Kind: KindUnknownTarget, Op: "command", Target: ic.CommandName(), Err: ErrUnknownCommand}
	}

	resp, err := recovered(ic.Logger, func() (Response, error) { return ic.Command.Handler(ctx, ic) })
	if err != nil {
		return nil, &Error{Kind: KindHandler, Op: "command", Target: ic.CommandName(), Err: err}
	}
	encoded, err := normalize(i.Type, resp)
	if err != nil {
		return nil, &Error{Kind: KindProtocol, Op: "command", Target: ic.CommandName(), Err: err}
	}
	return encoded, nil
}

func (d *Dispatcher) runAutocomplete(ctx context.Context, i *discordgo.Interaction, logger *slog.Logger) (*discordgo.InteractionResponse, error) {
	ic, err := d.commandContext(i, "autocomplete", logger)
	if err != nil {
		return nil, err
	}
	if ic.Command.Autocomplete == nil {
		return nil, &Error{Kind: KindUnknownTarget, Op: "autocomplete", Target: ic.CommandName(), Err: ErrUnknownCommand}
	}

	choices, err := recovered(ic.Logger, func() ([]*discordgo.ApplicationCommandOptionChoice, error) {
		return ic.Command.Autocomplete(ctx, ic)
	})
	if err != nil {
		return nil, &Error{Kind: KindHandler, Op: "autocomplete", Target: ic.CommandName(), Err: err}
	}
	return autocompleteResult(choices), nil
}

func (d *Dispatcher) runHandler(ctx context.Context, i *discordgo.Interaction, customID, op string, logger *slog.Logger) (*discordgo.InteractionResponse, error) {
	h, args, err := d.handlers.Resolve(customID)
	if err != nil {
		return nil, &Error{Kind: KindUnknownTarget, Op: op, Target: customID, Err: err}
	}

	ic := &Context{
		Interaction: i,
		CustomID:    customID,
		Args:        args,
		Logger:      logger.With("interaction_id", i.ID, "custom_id", customID),
	}
	resp, err := recovered(ic.Logger, func() (Response, error) { return h(ctx, ic) })
	if err != nil {
		return nil, &Error{Kind: KindHandler, Op: op, Target: customID, Err: err}
	}
	encoded, err := normalize(i.Type, resp)
	if err != nil {
		return nil, &Error{Kind: KindProtocol, Op: op, Target: customID, Err: err}
	}
	return encoded, nil
}

// commandContext resolves the command named by the interaction down to its
// leaf subcommand.
func (d *Dispatcher) commandContext(i *discordgo.Interaction, op string, logger *slog.Logger) (*Context, error) {
	data, ok := i.Data.(discordgo.ApplicationCommandInteractionData)
	if !ok {
		return nil, malformed(op)
	}

	cmd, ok := d.commands.Get(data.Name)
	if !ok {
		return nil, &Error{Kind: KindUnknownTarget, Op: op, Target: data.Name, Err: ErrUnknownCommand}
	}

	path := []string{cmd.Name}
	opts := data.Options
	for len(cmd.Subcommands) > 0 {
		if hasNilOption(opts) {
			return nil, nullOption(op, data.Name)
		}
		if len(opts) == 0 || !isSubcommandOption(opts[0]) {
			return nil, &Error{Kind: KindUnknownTarget, Op: op, Target: data.Name, Err: fmt.Errorf("%w: missing subcommand", ErrUnknownCommand)}
		}
		sub, ok := cmd.Subcommand(opts[0].Name)
		if !ok {
			path = append(path, opts[0].Name)
			return nil, &Error{Kind: KindUnknownTarget, Op: op, Target: joinPath(path), Err: ErrUnknownCommand}
		}
		path = append(path, sub.Name)
		opts = opts[0].Options
		cmd = sub
	}
	if hasNilOption(opts) {
		return nil, nullOption(op, joinPath(path))
	}

	return &Context{
		Interaction: i,
		Command:     cmd,
		Path:        path,
		Options:     opts,
		Logger:      logger.With("interaction_id", i.ID, "command", joinPath(path)),
	}, nil
}

func isSubcommandOption(opt *discordgo.ApplicationCommandInteractionDataOption) bool {
	return opt.Type == discordgo.ApplicationCommandOptionSubCommand ||
		opt.Type == discordgo.ApplicationCommandOptionSubCommandGroup
}

// recovered runs fn and converts a panic into ErrHandlerPanic.
func recovered[T any](logger *slog.Logger, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return fn()
}

func malformed(op string) error {
	return &Error{Kind: KindMalformed, Op: op, Err: fmt.Errorf("%w: missing interaction data", ErrMalformedRequest)}
}

func nullOption(op, target string) error {
	return &Error{Kind: KindMalformed, Op: op, Target: target, Err: fmt.Errorf("%w: null option", ErrMalformedRequest)}
}

func hasNilOption(opts []*discordgo.ApplicationCommandInteractionDataOption) bool {
	for _, opt := range opts {
		if opt == nil {
			return true
		}
	}
	return false
}

func targetOf(i *discordgo.Interaction) string {
	switch data := i.Data.(type) {
	case discordgo.ApplicationCommandInteractionData:
		return data.Name
	case discordgo.MessageComponentInteractionData:
		return data.CustomID
	case discordgo.ModalSubmitInteractionData:
		return data.CustomID
	}
	return ""
}

func joinPath(path []string) string {
	return strings.Join(path, " ")
}

func failureResponse(t discordgo.InteractionType) *discordgo.InteractionResponse {
	if t == discordgo.InteractionApplicationCommandAutocomplete {
		return autocompleteResult(nil)
	}
	return Ephemeral("❌ Something went wrong while handling this interaction.").encode()
}

func logDispatchError(logger *slog.Logger, i *discordgo.Interaction, err error) {
	attrs := []any{"interaction_id", i.ID, "type", i.Type.String(), "error", err}
	switch KindOf(err) {
	case KindHandler, KindProtocol:
		logger.Error("interaction failed", attrs...)
	default:
		logger.Warn("interaction rejected", attrs...)
	}
}

// statusReply is the bare {"error": status} body used for auth and parse
// failures, which must not leak detail.
func statusReply(status int) Reply {
	body, _ := json.Marshal(map[string]int{"error": status})
	return Reply{Status: status, ContentType: contentTypeJSON, Body: body}
}

type errorBody struct {
	Error   int    `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorReply(status int, kind Kind, err error) Reply {
	msg := err.Error()
	if kind == KindHandler {
		msg = "handler failed"
	}
	body, _ := json.Marshal(errorBody{Error: status, Code: kind.String(), Message: msg})
	return Reply{Status: status, ContentType: contentTypeJSON, Body: body}
}
