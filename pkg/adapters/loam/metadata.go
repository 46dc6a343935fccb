package loam

// NodeMetadata represents the frontmatter of a story node document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type NodeMetadata struct {
	ID    string `json:"id" mapstructure:"id"`
	Title string `json:"title" mapstructure:"title"`

	// Root marks the entry node. Without it, a node named "root" or "start" is used.
	Root bool `json:"root" mapstructure:"root"`

	Ending  bool `json:"ending" mapstructure:"ending"`
	Winning bool `json:"winning" mapstructure:"winning"`

	// Options is decoded leniently: each entry is either a map with
	// to/node_id and text, or a bare target ID.
	Options []any `json:"options" mapstructure:"options"`
}

// LoaderOption is one decoded entry of NodeMetadata.Options.
type LoaderOption struct {
	To     string `json:"to" mapstructure:"to"`
	NodeID string `json:"node_id" mapstructure:"node_id"`
	JumpTo string `json:"jump_to" mapstructure:"jump_to"`
	Text   string `json:"text" mapstructure:"text"`
}

// Target returns the first non-empty target key.
func (o LoaderOption) Target() string {
	switch {
	case o.To != "":
		return o.To
	case o.NodeID != "":
		return o.NodeID
	default:
		return o.JumpTo
	}
}
