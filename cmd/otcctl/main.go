// Command otcctl is a thin read-only HTTP client for the coordinator's API,
// adapted from degeri-dcrlnd's cmd/dcrlncli command layout (urfave/cli
// subcommands, actionDecorator-style error handling) with the gRPC client
// plumbing replaced by plain net/http since the coordinator exposes
// HTTP/JSON, not gRPC.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/jedib0t/go-pretty/table"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "otcctl"
	app.Usage = "control plane client for the swap coordinator"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Value: "http://localhost:8080",
			Usage: "coordinator base URL",
		},
	}
	app.Commands = []cli.Command{
		statusCommand,
		getSwapCommand,
		connectedMMsCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[otcctl] %v\n", err)
		os.Exit(1)
	}
}

func baseURL(ctx *cli.Context) string {
	return ctx.GlobalString("rpcserver")
}

func getJSON(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s", url, resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(b))
}

var statusCommand = cli.Command{
	Name:  "status",
	Usage: "check the coordinator's liveness",
	Action: func(ctx *cli.Context) error {
		var out map[string]string
		if err := getJSON(baseURL(ctx)+"/status", &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var getSwapCommand = cli.Command{
	Name:      "getswap",
	Usage:     "fetch a swap by ID",
	ArgsUsage: "swap-id",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.ShowCommandHelp(ctx, "getswap")
		}
		var out map[string]interface{}
		url := fmt.Sprintf("%s/api/v1/swaps/%s", baseURL(ctx), ctx.Args().Get(0))
		if err := getJSON(url, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var connectedMMsCommand = cli.Command{
	Name:  "connected-mms",
	Usage: "list currently connected market makers",
	Action: func(ctx *cli.Context) error {
		var out struct {
			MarketMakers []string `json:"market_makers"`
		}
		if err := getJSON(baseURL(ctx)+"/api/v1/market-makers/connected", &out); err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Market Maker"})
		for _, mm := range out.MarketMakers {
			t.AppendRow(table.Row{mm})
		}
		t.Render()
		return nil
	},
}
