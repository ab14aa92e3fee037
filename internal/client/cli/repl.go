package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// printFn writes the prompt without a trailing newline.
var printFn = fmt.Print

const helpText = `Available commands:
  show                          show the current entry
  coords <lat> <lon> <acc_m>    set location from coordinates
  place <id>                    set location to a known place
  category <name>               set category
  sub <name>                    set subcategory
  set <field> [value...]        set a field (no value clears it)
  row <table> <item> <v1> [v2]  set a table row
  tag <t> / untag <t>           add or remove a tag
  note <text...>                set notes
  photo <path>                  attach a photo
  submit                        send the entry
  new                           discard the entry and start over
  pending                       list queued submissions
  sweep                         retry queued submissions now
  exit                          leave the program`

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Show(ctx context.Context) error
	Coords(ctx context.Context, args []string) error
	Place(ctx context.Context, args []string) error
	Category(ctx context.Context, args []string) error
	Sub(ctx context.Context, args []string) error
	Set(ctx context.Context, args []string) error
	Row(ctx context.Context, args []string) error
	Tag(ctx context.Context, args []string) error
	Untag(ctx context.Context, args []string) error
	Note(ctx context.Context, args []string) error
	Photo(ctx context.Context, args []string) error
	Submit(ctx context.Context) error
	New(ctx context.Context) error
	Pending(ctx context.Context) error
	Sweep(ctx context.Context) error
}

// runREPL starts a read-eval-print loop over scanner.
//
// The first token of each line selects the command; the remaining tokens are
// its arguments. A prompt carrying statusFn() is printed before each read
// when prompt is true (interactive terminal). The loop exits on EOF, on
// "exit"/"quit" or when ctx is done, even while a read is pending. Command
// errors are printed and never end the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner, prompt bool) {
	readCtx, stop := context.WithCancel(ctx)
	defer stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
	}()

	for {
		if prompt {
			printFn(fmt.Sprintf("fr %s> ", statusFn()))
		}

		var line string
		select {
		case <-ctx.Done():
			if prompt {
				printlnFn()
			}
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "show":
			err = a.Show(ctx)
		case "coords":
			err = a.Coords(ctx, args)
		case "place":
			err = a.Place(ctx, args)
		case "category":
			err = a.Category(ctx, args)
		case "sub":
			err = a.Sub(ctx, args)
		case "set":
			err = a.Set(ctx, args)
		case "row":
			err = a.Row(ctx, args)
		case "tag":
			err = a.Tag(ctx, args)
		case "untag":
			err = a.Untag(ctx, args)
		case "note":
			err = a.Note(ctx, args)
		case "photo":
			err = a.Photo(ctx, args)
		case "submit":
			err = a.Submit(ctx)
		case "new":
			err = a.New(ctx)
		case "pending":
			err = a.Pending(ctx)
		case "sweep":
			err = a.Sweep(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
