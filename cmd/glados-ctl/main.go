package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"glados/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	timeout := cli.DurationP("timeout", "t", 6*time.Minute, "How long to wait for the reply")
	cli.Parse()

	msg := ipc.ControlMessage{Cmd: "ping"}
	if text := strings.TrimSpace(strings.Join(cli.Args(), " ")); text != "" {
		msg = ipc.ControlMessage{Cmd: "ask", Text: text}
	}

	reply, err := ipc.Send(*socket, msg, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "glados-daemon not reachable:", err)
		os.Exit(1)
	}
	fmt.Println(reply.Text)
}
