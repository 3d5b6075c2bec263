// Package main 是 instaiq 命令行入口：导入 profile、查询网关、交互式问答和查看导入记录。
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"insta-iq-go/internal/app"
	"insta-iq-go/internal/config"
	"insta-iq-go/internal/service"
	"insta-iq-go/pkg/errs"
	"insta-iq-go/pkg/log"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newCLI(os.Stdin, os.Stdout, openApp).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "An error occurred:", err)
		os.Exit(1)
	}
}

// opener 根据命令行上下文组装依赖，测试中可替换。
type opener func(c *cli.Context) (*app.App, error)

func openApp(c *cli.Context) (*app.App, error) {
	cfg, err := config.Load(c.String("config"), c.String("env"))
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	log.Init(level, cfg.Log.Format, cfg.Log.OutputPath)
	return app.New(c.Context, cfg, app.Options{})
}

type runner struct {
	in   *bufio.Reader
	out  io.Writer
	open opener
}

func newCLI(in io.Reader, out io.Writer, open opener) *cli.App {
	r := &runner{in: bufio.NewReader(in), out: out, open: open}
	return &cli.App{
		Name:      "instaiq",
		Usage:     "Ingest Instagram profiles into a vector store and ask questions about them",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   "./configs/config.yaml",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to a dotenv file",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Scrape a profile and upload its posts to the vector store",
				Action: r.ingest,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "profile",
						Aliases:  []string{"p"},
						Usage:    "Instagram profile handle",
						Required: true,
					},
				},
			},
			{
				Name:   "query",
				Usage:  "Ask the retrieval gateway a question",
				Action: r.query,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "text",
						Aliases:  []string{"t"},
						Usage:    "Question text",
						Required: true,
					},
				},
			},
			{
				Name:   "ask",
				Usage:  "Interactively ingest a profile and ask one question about it",
				Action: r.ask,
			},
			{
				Name:   "runs",
				Usage:  "List recorded ingestion runs (requires MySQL)",
				Action: r.runs,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "profile",
						Aliases: []string{"p"},
						Usage:   "Only show runs of this profile",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs",
						Value: service.DefaultRunListLimit,
					},
				},
			},
		},
	}
}

func (r *runner) ingest(c *cli.Context) error {
	a, err := r.open(c)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Ingestion.Ingest(c.Context, c.String("profile"))
	if err != nil {
		return cliError(err)
	}
	fmt.Fprintf(r.out, "Data processed successfully for Instagram ID %s.\n", result.Profile)
	return r.printJSON(result)
}

func (r *runner) query(c *cli.Context) error {
	a, err := r.open(c)
	if err != nil {
		return err
	}
	defer a.Close()
	return r.queryAndPrint(c.Context, a, c.String("text"))
}

func (r *runner) ask(c *cli.Context) error {
	profile, err := r.prompt("Enter the Instagram user ID: ")
	if err != nil {
		return err
	}
	text, err := r.prompt("Enter the query string: ")
	if err != nil {
		return err
	}

	a, err := r.open(c)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Ingestion.Ingest(c.Context, profile); err != nil {
		return cliError(err)
	}
	return r.queryAndPrint(c.Context, a, text)
}

func (r *runner) runs(c *cli.Context) error {
	a, err := r.open(c)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.Ingestion.ListRuns(c.String("profile"), c.Int("limit"))
	if err != nil {
		return cliError(err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(r.out, "No ingestion runs recorded.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(r.out, "%s  %-20s  %-10s  posts=%d inserted=%d", run.RunID, run.Profile, run.State, run.Posts, run.Inserted)
		if run.FailedChunks != "" {
			fmt.Fprintf(r.out, " failedChunks=%s", run.FailedChunks)
		}
		fmt.Fprintln(r.out)
	}
	return nil
}

func (r *runner) queryAndPrint(ctx context.Context, a *app.App, text string) error {
	resp, err := a.Query.Query(ctx, text)
	if err != nil {
		return cliError(err)
	}
	fmt.Fprintln(r.out, "\n--- Results ---")
	fmt.Fprint(r.out, "Full Response: ")
	if err := r.printJSON(resp.Raw); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Extracted Answer:", resp.Text)
	return nil
}

func (r *runner) prompt(label string) (string, error) {
	fmt.Fprint(r.out, label)
	line, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("读取输入失败: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (r *runner) printJSON(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// cliError 只向用户展示分类后的消息，细节写入日志。
func cliError(err error) error {
	log.Errorf("[CLI] 命令执行失败: %v", err)
	return errors.New(errs.MessageOf(err))
}
