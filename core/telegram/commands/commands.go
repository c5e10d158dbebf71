// Package commands describes bot commands for the registry and the menu.
package commands

// Command is the metadata of one slash command. Dispatch happens elsewhere;
// the registry only resolves names and aliases and publishes the menu.
type Command struct {
	Description string
	// AdminOnly commands are hidden from the public menu.
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}
