// Command jsondb-cli is an interactive line client: type one JSON command
// per line, get one JSON value back.
//
//	$ jsondb-cli -addr 127.0.0.1:6142
//	> {"set": ["k1", [1, 2, 3, 4]]}
//	null
//	> {"max": {"get": "k1"}}
//	4
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"jsondb/internal/model"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:6142", "server address")
	flag.Parse()

	interactive := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
	if !interactive {
		color.NoColor = true
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	resultColor := color.New(color.FgGreen)
	errorColor := color.New(color.FgRed)
	prompt := color.New(color.FgCyan)

	in := bufio.NewScanner(os.Stdin)
	replies := bufio.NewReader(conn)

	for {
		if interactive {
			prompt.Fprint(os.Stdout, "> ")
		}
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		if _, err := fmt.Fprintln(conn, line); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
			os.Exit(1)
		}
		reply, err := replies.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "server closed the connection: %v\n", err)
			os.Exit(1)
		}
		reply = strings.TrimSpace(reply)

		if isErrorReply(reply) {
			errorColor.Println(reply)
		} else {
			resultColor.Println(reply)
		}
	}
}

// isErrorReply checks for the {"error": ...} reply shape.
func isErrorReply(reply string) bool {
	v, err := model.Parse([]byte(reply))
	if err != nil || v.Type != model.ObjectType {
		return false
	}
	_, ok := v.ObjectGet("error")
	return ok && len(v.Keys) == 1
}
