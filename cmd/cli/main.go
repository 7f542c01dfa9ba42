// Command cli is an interactive client for the execution service. It reads
// source files from disk and drives the HTTP API: asynchronous submission,
// status polling, synchronous runs and queue inspection.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

const defaultBaseURL = "http://127.0.0.1:8000"

// extensions maps common file extensions to language tags so `run code.py`
// needs no explicit language argument.
var extensions = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".java": "java",
	".cpp":  "cpp",
	".cc":   "cpp",
	".c":    "c",
	".go":   "go",
	".rs":   "rust",
	".php":  "php",
	".rb":   "ruby",
	".sh":   "bash",
}

type cli struct {
	baseURL string
	client  *http.Client
}

func main() {
	baseURL := flag.String("base", defaultBaseURL, "Service base URL")
	timeout := flag.Duration("timeout", 130*time.Second, "HTTP timeout")
	flag.Parse()

	c := &cli{
		baseURL: strings.TrimRight(*baseURL, "/"),
		client:  &http.Client{Timeout: *timeout},
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "kodecompiler> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".kodecompiler_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("run"),
			readline.PcItem("submit"),
			readline.PcItem("status"),
			readline.PcItem("queue"),
			readline.PcItem("languages"),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init readline failed: %v\n", err)
		return
	}
	defer rl.Close()

	fmt.Println("Connected to", c.baseURL, "(type 'help' for commands)")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args, err := shlex.Split(line)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}

		switch args[0] {
		case "exit", "quit":
			return
		case "help":
			printHelp()
		case "run":
			c.run(args[1:], true)
		case "submit":
			c.run(args[1:], false)
		case "status":
			c.status(args[1:])
		case "queue":
			c.get("/api/queue/status")
		case "languages":
			c.get("/api/languages")
		default:
			fmt.Println("unknown command:", args[0], "(type 'help')")
		}
	}
}

func printHelp() {
	fmt.Print(`commands:
  run <file> [language] [input-file]     execute and wait for the result
  submit <file> [language] [input-file]  queue a job and print its id
  status <job_id>                        poll a queued job
  queue                                  show queue pressure
  languages                              list supported languages
  exit                                   leave
`)
}

func (c *cli) run(args []string, sync bool) {
	if len(args) == 0 {
		fmt.Println("usage: run <file> [language] [input-file]")
		return
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Println("read source failed:", err)
		return
	}

	language := ""
	if len(args) > 1 {
		language = args[1]
	} else {
		language = extensions[filepath.Ext(args[0])]
	}
	if language == "" {
		fmt.Println("cannot infer language from", args[0], "- pass it explicitly")
		return
	}

	input := ""
	if len(args) > 2 {
		data, err := os.ReadFile(args[2])
		if err != nil {
			fmt.Println("read input failed:", err)
			return
		}
		input = string(data)
	}

	body := map[string]string{
		"language": language,
		"code":     string(source),
		"input":    input,
	}
	path := "/api/execute"
	if sync {
		path = "/api/execute/sync"
	}
	c.post(path, body)
}

func (c *cli) status(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: status <job_id>")
		return
	}
	c.get("/api/execute/" + args[0] + "/status")
}

func (c *cli) get(path string) {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		fmt.Println("request failed:", err)
		return
	}
	printResponse(resp)
}

func (c *cli) post(path string, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		fmt.Println("encode request failed:", err)
		return
	}
	resp, err := c.client.Post(c.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Println("request failed:", err)
		return
	}
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Println("read response failed:", err)
		return
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		fmt.Printf("[%d]\n%s\n", resp.StatusCode, pretty.String())
		return
	}
	fmt.Printf("[%d] %s\n", resp.StatusCode, string(data))
}
