package extension

// Filter is a handler dispatch declaration. The set of implementations is
// closed: CommandFilter, GroupFilter, and PermissionFilter.
type Filter interface {
	filter()
}

// CommandFilter binds a handler to one command name plus optional aliases.
type CommandFilter struct {
	Name    string
	Aliases []string
}

// GroupFilter binds a handler to a command group name.
type GroupFilter struct {
	Group string
}

// PermissionFilter marks a handler as admin-only. Its presence on a handler
// is the signal; it carries no fields.
type PermissionFilter struct{}

func (CommandFilter) filter()    {}
func (GroupFilter) filter()      {}
func (PermissionFilter) filter() {}
