// Command treectl runs pathmut mutations against a JSON tree file.
//
//	treectl --file tree.json set /users/ada '{"name":"Ada"}' --priority 1
//	treectl --file tree.json update /users/ada '{"age":36,"langs/0":"go"}'
//	treectl --file tree.json incr /counters/visits --by 2
//	treectl --file tree.json get /users --export
//	treectl --file tree.json remove /users/ada
//
// Every flag can also be set through the environment (TREECTL_CACHE,
// TREECTL_REDIS_ADDR, ...) or a .env file in the working directory.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
