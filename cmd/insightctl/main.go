// Command insightctl analyses match files offline.
package main

import "github.com/riftcoach/insight/internal/cli"

func main() {
	cli.Execute()
}
