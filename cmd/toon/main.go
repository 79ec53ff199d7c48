// Command toon encodes and decodes TOON documents from the command line.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paularlott/cli"

	"github.com/tokenoriented/toon"
)

func main() {
	app := &cli.App{
		Name:  "toon",
		Usage: "encode and decode Token-Oriented Object Notation",
		Commands: []*cli.Command{
			encodeCommand(),
			decodeCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "toon:", err)
		os.Exit(1)
	}
}

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "convert JSON to TOON",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "indent", Value: 2, Usage: "spaces per indentation step"},
			&cli.StringFlag{Name: "delimiter", Value: ",", Usage: "field delimiter: , | or tab"},
			&cli.StringFlag{Name: "key-folding", Value: "off", Usage: "off or safe"},
			&cli.StringFlag{Name: "length-marker", Value: "", Usage: "literal prefix inside array length headers"},
		},
		Action: func(c *cli.Context) error {
			data, err := readInput(c.Args().First())
			if err != nil {
				return err
			}
			var v interface{}
			if err := json.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("invalid JSON input: %w", err)
			}
			text, err := toon.Encode(v, &toon.EncodeOptions{
				Indent:       c.Int("indent"),
				Delimiter:    resolveDelimiter(c.String("delimiter")),
				KeyFolding:   c.String("key-folding"),
				LengthMarker: c.String("length-marker"),
			})
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "decode",
		Usage: "convert TOON to JSON",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Value: true, Usage: "enforce indentation discipline"},
			&cli.IntFlag{Name: "indent-size", Value: 2, Usage: "required indent step in strict mode"},
			&cli.StringFlag{Name: "expand-paths", Value: "off", Usage: "off or safe"},
		},
		Action: func(c *cli.Context) error {
			data, err := readInput(c.Args().First())
			if err != nil {
				return err
			}
			v, err := toon.Decode(string(data), &toon.DecodeOptions{
				Strict:      c.Bool("strict"),
				IndentSize:  c.Int("indent-size"),
				ExpandPaths: c.String("expand-paths"),
			})
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(jsonable(v), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func resolveDelimiter(s string) string {
	switch s {
	case "tab", `\t`:
		return "\t"
	default:
		return s
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// jsonable converts every decoded *toon.Obj, at any depth inside objects
// and arrays, into a map so encoding/json renders field names instead of
// struct internals; primitive results already marshal directly.
func jsonable(v interface{}) interface{} {
	if items, ok := v.([]interface{}); ok {
		out := make([]interface{}, len(items))
		for i, it := range items {
			out[i] = jsonable(it)
		}
		return out
	}
	obj, ok := v.(*toon.Obj)
	if !ok {
		return v
	}
	m := make(map[string]interface{}, obj.Len())
	for _, k := range obj.Keys() {
		val, _ := obj.Get(k)
		m[k] = jsonable(val.Interface())
	}
	return m
}
