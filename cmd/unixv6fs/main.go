// Command unixv6fs is a line-oriented shell over a unixv6 filesystem
// image, implementing the verbs initfs, load, mkdir, rm, cpin, cpout,
// cd, ls, and q.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-unixv6/unixv6fs/shell"
)

func main() {
	scriptPath := flag.String("script", "", "read commands from a script file instead of stdin")
	flag.Parse()

	in := os.Stdin
	if *scriptPath != "" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	sess := shell.NewSession()
	scanner := bufio.NewScanner(in)
	interactive := *scriptPath == ""

	for {
		if interactive {
			fmt.Printf("%s> ", sess.CursorPath())
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		verb, args := fields[0], fields[1:]

		if verb == "q" {
			if err := sess.Quit(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}

		out, err := dispatch(sess, verb, args)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if out != "" {
			fmt.Print(out)
			if !strings.HasSuffix(out, "\n") {
				fmt.Println()
			}
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	_ = sess.Quit()
}

func dispatch(sess *shell.Session, verb string, args []string) (string, error) {
	switch verb {
	case "initfs":
		return sess.Initfs(args)
	case "load":
		return sess.Load(args)
	case "mkdir":
		return sess.Mkdir(args)
	case "rm":
		return sess.Rm(args)
	case "cpin":
		return sess.Cpin(args)
	case "cpout":
		return sess.Cpout(args)
	case "cd":
		return sess.Cd(args)
	case "ls":
		return sess.Ls(args)
	default:
		return "", fmt.Errorf("unixv6fs: unknown verb %q", verb)
	}
}
