// This file is part of glua.
//
// Copyright 2024 The glua Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/xyproto/env/v2"
	xterm "golang.org/x/term"

	"github.com/dbrn/glua/compiler"
	"github.com/dbrn/glua/parser"
	"github.com/dbrn/glua/stdlib"
	"github.com/dbrn/glua/vm"
)

// Exit codes (spec §6.3): 0 success, 1 runtime error, 2 syntax error, 3 I/O
// error.
const (
	exitOK      = 0
	exitRuntime = 1
	exitSyntax  = 2
	exitIOError = 3
)

var (
	execChunk   string
	interactive bool
	showVersion bool
)

func main() {
	pflag.StringVarP(&execChunk, "execute", "e", "", "execute `chunk` before the script (or instead of one)")
	pflag.BoolVarP(&interactive, "interactive", "i", false, "enter interactive mode after running the script")
	pflag.BoolVarP(&showVersion, "version", "v", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println("Lua 5.1 (glua)")
		os.Exit(exitOK)
	}

	in, err := vm.New(
		vm.Stdout(os.Stdout),
		vm.Stderr(os.Stderr),
		vm.Stdin(os.Stdin),
		vm.MaxCallDepth(env.Int("GLUA_MAXCALLDEPTH", 200)),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitRuntime)
	}
	stdlib.Open(in)

	args := pflag.Args()
	setupArgTable(in, args)

	if init := env.Str("GLUA_INIT", ""); init != "" {
		if err := runChunk(in, "=GLUA_INIT", []byte(init)); err != nil {
			reportAndExit(err)
		}
	}

	ranScript := false

	if execChunk != "" {
		if err := runChunk(in, "=(command line)", []byte(execChunk)); err != nil {
			reportAndExit(err)
		}
		ranScript = true
	}

	if len(args) > 0 {
		scriptName := args[0]
		src, err := readSource(scriptName)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitIOError)
		}
		if err := runChunk(in, scriptName, src); err != nil {
			reportAndExit(err)
		}
		ranScript = true
	}

	if interactive || !ranScript {
		runREPL(in)
	}
}

// setupArgTable installs the global `arg` table (spec §6.3): arg[0] is the
// script name (or the empty string when none was given), positive indices
// are the script's own trailing arguments.
func setupArgTable(in *vm.Instance, args []string) {
	h := in.Heap()
	t := h.NewTable(0, len(args))
	name := ""
	rest := args
	if len(args) > 0 {
		name = args[0]
		rest = args[1:]
	}
	t.Set(vm.Number(0), h.NewString([]byte(name)))
	for i, a := range rest {
		t.Set(vm.Number(i+1), h.NewString([]byte(a)))
	}
	h.Globals().SetStr(h.NewString([]byte("arg")), t)
}

// readSource loads a chunk's source bytes: "-" reads standard input, per
// spec §6.3's "-" placeholder for a script piped into the interpreter.
func readSource(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

// runChunk compiles and runs one chunk of source under the given name,
// returning whatever error stopped it (syntax, compile or runtime).
func runChunk(in *vm.Instance, source string, src []byte) error {
	proto, err := compile(in.Heap(), source, src)
	if err != nil {
		return err
	}
	cl := in.Heap().NewLuaClosure(proto)
	_, err = in.Call(cl)
	return err
}

// compile runs a chunk's source through the parser and compiler, a thin
// helper shared by script execution and the REPL so both report syntax
// errors identically.
func compile(heap *vm.Heap, source string, src []byte) (*vm.Proto, error) {
	block, err := parser.Parse(source, src)
	if err != nil {
		return nil, &syntaxError{err}
	}
	proto, err := compiler.Compile(heap, source, block)
	if err != nil {
		return nil, &syntaxError{err}
	}
	return proto, nil
}

// syntaxError distinguishes a parse/compile failure from a runtime one so
// reportAndExit can choose exit code 2 over 1 (spec §6.3).
type syntaxError struct{ err error }

func (e *syntaxError) Error() string { return e.err.Error() }
func (e *syntaxError) Unwrap() error { return e.err }

func reportAndExit(err error) {
	var se *syntaxError
	if errors.As(err, &se) {
		fmt.Fprintln(os.Stderr, "glua: "+se.Error())
		os.Exit(exitSyntax)
	}
	var rte *vm.RuntimeError
	if errors.As(err, &rte) {
		fmt.Fprintln(os.Stderr, "glua: "+rte.Error())
		for _, pos := range rte.Traceback {
			fmt.Fprintln(os.Stderr, "\t"+pos.String())
		}
		os.Exit(exitRuntime)
	}
	fmt.Fprintln(os.Stderr, "glua: "+err.Error())
	os.Exit(exitRuntime)
}

// runREPL implements the interactive prompt (spec §6.3 "-i"): each line is
// compiled and run as its own chunk, tried first as `return <line>` and then
// as a plain statement. Every prompt is a plain "> "; there are no
// continuation prompts and no sizing against the terminal width. When stdin
// is a terminal (x/term.IsTerminal) the REPL tries to enter raw mode through
// setRawIO.
func runREPL(in *vm.Instance) {
	isTTY := xterm.IsTerminal(int(os.Stdin.Fd()))
	var restore func()
	if isTTY {
		if fn, err := setRawIO(); err == nil {
			restore = fn
		}
	}
	if restore != nil {
		defer restore()
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Lua 5.1 (glua)")
	for {
		fmt.Print("> ")
		line, err := readREPLLine(reader, restore != nil)
		if err == io.EOF {
			fmt.Println()
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "glua: "+err.Error())
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if err := runChunk(in, "=stdin", []byte("return "+line)); err != nil {
			if err := runChunk(in, "=stdin", []byte(line)); err != nil {
				printREPLError(err)
			}
		}
	}
}

func printREPLError(err error) {
	if rte, ok := err.(*vm.RuntimeError); ok {
		fmt.Fprintln(os.Stderr, rte.Error())
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
}

// readREPLLine reads one input line. In raw mode (a real tty with echo
// disabled by setRawIO) it also echoes keystrokes and handles backspace,
// since the terminal itself won't; otherwise the line discipline already
// does both and a plain ReadString suffices.
func readREPLLine(r *bufio.Reader, raw bool) (string, error) {
	if !raw {
		return r.ReadString('\n')
	}
	var b strings.Builder
	for {
		c, err := r.ReadByte()
		if err != nil {
			if b.Len() > 0 {
				return b.String(), nil
			}
			return "", err
		}
		switch c {
		case '\r', '\n':
			fmt.Print("\r\n")
			return b.String(), nil
		case 127, 8: // backspace / DEL
			if b.Len() > 0 {
				s := b.String()
				b.Reset()
				b.WriteString(s[:len(s)-1])
				fmt.Print("\b \b")
			}
		case 4: // Ctrl-D
			if b.Len() == 0 {
				return "", io.EOF
			}
		default:
			b.WriteByte(c)
			os.Stdout.Write([]byte{c})
		}
	}
}
