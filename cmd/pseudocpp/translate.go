package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/pseudocpp/internal/translate"
)

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

func translateCmd(d translate.Direction) *cli.Command {
	var (
		text       string
		file       string
		showTokens bool
	)

	name, usage := "code", "Generate C++ code from pseudocode"
	if d == translate.CodeToPseudo {
		name, usage = "pseudo", "Generate pseudocode from C++ code"
	}

	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: append(commonModelFlags(&modelOpts),
			&cli.StringFlag{
				Name:        "text",
				Aliases:     []string{"t"},
				Usage:       "input text (default: read --file or stdin)",
				Destination: &text,
			},
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "read input from file",
				Destination: &file,
			},
			&cli.BoolFlag{
				Name:        "show-tokens",
				Usage:       "print token counts and timing to stderr",
				Destination: &showTokens,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyModelConfig(cmd, fileConfig, &modelOpts)

			input, err := readInput(text, file, os.Stdin)
			if err != nil {
				return err
			}
			if err := checkInput(d, input); err != nil {
				return err
			}

			svc := translate.NewService(directionConfigs(fileConfig, modelOpts)...)
			res := svc.Translate(ctx, d, input)
			return writeResult(os.Stdout, os.Stderr, res, showTokens)
		},
	}
}

// checkInput rejects only empty input; whitespace is translated as given.
func checkInput(d translate.Direction, input string) error {
	if input == "" {
		return errors.New(d.EmptyInputMessage())
	}
	return nil
}

// readInput picks the input source: --text, then --file, then piped stdin.
func readInput(text, file string, stdin io.Reader) (string, error) {
	if text != "" {
		return text, nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	}
	if stdinIsTTY() {
		return "", errors.New("no input: pass --text, --file or pipe text on stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// writeResult prints the translation to stdout and diagnostics to stderr.
// A failed translation becomes the command's error.
func writeResult(stdout, stderr io.Writer, res translate.Result, showTokens bool) error {
	if res.Err != nil {
		return errors.New(res.Text)
	}
	_, _ = fmt.Fprintln(stdout, res.Text)
	if res.Truncated {
		_, _ = fmt.Fprintf(stderr, "note: output stopped at the %s token limit and may be incomplete\n",
			humanize.Comma(int64(res.Stats.TokensGenerated)))
	}
	if showTokens {
		_, _ = fmt.Fprintf(stderr, "tokens: input=%d output=%d steps=%d time=%s (%.1f tok/s)\n",
			res.InputTokens, res.OutputTokens, res.Stats.Steps, res.Stats.Duration.Round(time.Millisecond), res.Stats.TPS)
	}
	return nil
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
