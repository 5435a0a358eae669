/*
Package runner drives a conversation with the assistant from a line-oriented
frontend (a terminal, a pipe of JSON lines).

It reads a user message, sends it to the assistant, prints the new outputs and,
while the thread waits at the confirmation gate, asks an Approver for a
decision. Transports that are not line oriented (HTTP, MCP) only share
SanitizeInput and the Response shape.

# Usage

	r := runner.New(bot,
		runner.WithHandler(runner.NewTextHandler(os.Stdin, os.Stdout, runner.WithTextHandlerRenderer(render))),
		runner.WithLogger(logger),
	)
	if err := r.Run(ctx, "thread-1", "p-1001"); err != nil {
		log.Fatal(err)
	}
*/
package runner
