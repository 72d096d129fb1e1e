package domain

// InteractionKind distinguishes the four inbound interaction shapes.
type InteractionKind string

const (
	InteractionCommand InteractionKind = "command"
	InteractionButton  InteractionKind = "button"
	InteractionSelect  InteractionKind = "select"
	InteractionModal   InteractionKind = "modal"
)

// Interaction is a normalized inbound user interaction.
type Interaction struct {
	ID        string
	Kind      InteractionKind
	Token     string
	Command   string
	Sub       string
	Options   map[string]Option
	Values    []string
	Fields    map[string]string
	Actor     *Member
	GuildID   string
	ChannelID string
	MessageID string
}

// Option is one resolved command option.
type Option struct {
	Name   string
	String string
	Int    int64
	Bool   bool
	User   *Member
}

// StringOption returns a string option or fallback when absent.
func (i *Interaction) StringOption(name, fallback string) string {
	if o, ok := i.Options[name]; ok && o.String != "" {
		return o.String
	}
	return fallback
}

// IntOption returns an integer option or fallback when absent.
func (i *Interaction) IntOption(name string, fallback int64) int64 {
	if o, ok := i.Options[name]; ok {
		return o.Int
	}
	return fallback
}

// BoolOption returns a boolean option or fallback when absent.
func (i *Interaction) BoolOption(name string, fallback bool) bool {
	if o, ok := i.Options[name]; ok {
		return o.Bool
	}
	return fallback
}

// UserOption returns the resolved user for name, if any.
func (i *Interaction) UserOption(name string) (*Member, bool) {
	o, ok := i.Options[name]
	if !ok || o.User == nil {
		return nil, false
	}
	return o.User, true
}

// Field returns a modal field value.
func (i *Interaction) Field(name string) string {
	return i.Fields[name]
}
