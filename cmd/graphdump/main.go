package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pwnedgod/carrier/codec"
	"github.com/pwnedgod/carrier/codec/json"
	"github.com/pwnedgod/carrier/codec/msgpack"
	"github.com/pwnedgod/carrier/logger"
	zaplogger "github.com/pwnedgod/carrier/logger/zap"
	"github.com/pwnedgod/carrier/storage"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type report struct {
	Root   *rootInfo       `yaml:"root,omitempty"`
	Layout *storage.Layout `yaml:"layout"`
}

type rootInfo struct {
	ID      storage.ID `yaml:"id"`
	Present bool       `yaml:"present"`
}

func main() {
	app := cli.NewApp()
	app.Name = "graphdump"
	app.Usage = "print the layout of a serialized object graph"
	app.ArgsUsage = "FILE"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "codec",
			Usage: "record codec the graph was written with (msgpack or json)",
			Value: "msgpack",
		},
		&cli.Int64Flag{
			Name:  "id",
			Usage: "root id to look up in the slot table",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "log debug output",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one FILE argument", 2)
	}

	zl, err := newZap(c.Bool("verbose"))
	if err != nil {
		return err
	}
	defer zl.Sync()
	log := zaplogger.NewLogger(zl)

	path := c.Args().First()
	var data []byte
	if path == "-" {
		data, err = io.ReadAll(c.App.Reader)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	log.Debug("graph loaded", "path", path, "length", len(data))

	return dump(c.App.Writer, log, data, c.String("codec"), c.Int64("id"))
}

func newZap(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func codecFor(name string) (codec.Codec, error) {
	switch name {
	case "msgpack":
		return msgpack.NewCodec(), nil
	case "json":
		return json.NewCodec(), nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

func dump(w io.Writer, log logger.Logger, data []byte, codecName string, id int64) error {
	rc, err := codecFor(codecName)
	if err != nil {
		return err
	}

	layout, err := storage.Inspect(data, rc)
	if err != nil {
		log.Error("inspect failed", "error", err)
		return err
	}

	r := report{Layout: layout}
	if id != 0 {
		r.Root = &rootInfo{ID: storage.ID(id)}
		for _, slot := range layout.Slots {
			if slot.ID == r.Root.ID {
				r.Root.Present = true
				break
			}
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&r); err != nil {
		return err
	}
	return enc.Close()
}
