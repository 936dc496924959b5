package interactions

// Blueprint groups commands and component handlers so a feature can be
// built on its own and merged into a Dispatcher with RegisterBlueprint.
type Blueprint struct {
	Commands *CommandRegistry
	Handlers *HandlerRegistry
}

// NewBlueprint returns an empty blueprint.
func NewBlueprint() *Blueprint {
	return &Blueprint{
		Commands: NewCommandRegistry(),
		Handlers: NewHandlerRegistry(),
	}
}

// Command registers cmd on the blueprint.
func (b *Blueprint) Command(cmd *Command) error {
	return b.Commands.Register(cmd)
}

// Handler registers a component or modal handler on the blueprint.
func (b *Blueprint) Handler(customID string, h HandlerFunc) error {
	return b.Handlers.Register(customID, h)
}

// Merge folds other into b. Entries of other win on collision.
func (b *Blueprint) Merge(other *Blueprint) (commands, handlers []string) {
	return b.Commands.Merge(other.Commands), b.Handlers.Merge(other.Handlers)
}
