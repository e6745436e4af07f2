// Package cli implements the interactive terminal client for chests.
//
// The client runs a read-eval-print loop. A chest is created with "new" or
// fetched from the remote store with "open <id>" (or "reopen" for the last
// one), then unlocked with the master password. Entries are edited in
// memory; every edit marks the chest needSync until "sync" uploads a freshly
// sealed copy.
//
// Commands
//
//	new [-f] [name]           create a chest and upload it
//	open [-f] <id>            fetch and unlock a chest
//	reopen [-f]               open the last unlocked chest
//	unlock                    unlock the loaded chest again
//	list [query] | list trash list entries
//	show <id>                 print one entry with its password
//	add                       add an entry
//	edit <id> <field> <value> change one field
//	trash <id> | restore <id> move an entry to or from the trash
//	delete <id>               remove an entry for good
//	sync                      upload the chest
//	passwd                    change the master password
//	lock                      forget the master password and entries
//	status                    show chest, sync status and account
//	signout                   drop the cached OAuth token
//	help, exit | quit
package cli
