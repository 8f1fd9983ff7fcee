package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/mkchaos/rsc/pkg/utils"
)

const (
	historyFile = ".rsc_history"
	promptMain  = "rsc> "
	promptCont  = "...> "
)

func main() {
	stackSize := flag.Int("stack", 4096, "VM capacity in cells")
	flag.Parse()

	s := newSession(*stackSize, os.Stdout)
	if flag.NArg() > 0 {
		fullPath, src, err := utils.ReadSource(flag.Arg(0))
		if err != nil {
			log.Fatalf("Failed to read source file: %v", err)
		}
		if err := s.add(src); err != nil {
			log.Fatalf("%s: %v", fullPath, err)
		}
		fmt.Println("loaded", fullPath)
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Println("enter declarations; :run executes main, :quit leaves")
	for {
		code, ok := readChunk(ln)
		if !ok {
			fmt.Println()
			return
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			exit, err := s.command(trimmed)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			if exit {
				return
			}
			continue
		}
		if err := s.add(code); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// readChunk reads lines until the braces and parentheses typed so far
// balance.
func readChunk(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if balanced(b.String()) {
			return b.String(), true
		}
	}
}
