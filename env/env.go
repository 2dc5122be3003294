package env

// Args are the command line switches shared by the commands.
type Args struct {
	Config  *string
	Test    *bool
	Verbose *bool
}
