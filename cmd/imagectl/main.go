// Command imagectl talks to the image API.
//
//	imagectl [-api URL] upload -owner u1 [-tag k=v] FILE
//	imagectl [-api URL] list -owner u1 [-status AVAILABLE] [-limit 20] [-token T]
//	imagectl [-api URL] get [-o FILE] IMAGE_ID
//	imagectl [-api URL] delete IMAGE_ID
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/imagevault/internal/buildinfo"
	"github.com/dmitrijs2005/imagevault/internal/imageclient"
	"github.com/dmitrijs2005/imagevault/internal/netx"
)

var errUsage = errors.New("usage: imagectl [-api URL] upload|list|get|delete ...")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type tagFlags map[string]string

func (t tagFlags) String() string { return fmt.Sprint(map[string]string(t)) }

func (t tagFlags) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || k == "" {
		return fmt.Errorf("tag %q must look like key=value", v)
	}
	t[k] = val
	return nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("imagectl", flag.ContinueOnError)
	apiURL := global.String("api", envOr("IMAGES_API", "http://localhost:8080"), "API base URL")
	version := global.Bool("version", false, "print build info")
	if err := global.Parse(args); err != nil {
		return err
	}
	if *version {
		buildinfo.PrintBuildData(out)
		return nil
	}

	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}
	c := imageclient.New(*apiURL, nil)
	cmd, cmdArgs := rest[0], rest[1:]

	switch cmd {
	case "upload":
		fs := flag.NewFlagSet("upload", flag.ContinueOnError)
		owner := fs.String("owner", "", "owner id")
		tags := tagFlags{}
		fs.Var(tags, "tag", "tag key=value (repeatable)")
		if err := fs.Parse(cmdArgs); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errUsage
		}
		res, err := c.UploadFile(ctx, *owner, fs.Arg(0), tags)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]string{"imageId": res.ImageID, "objectKey": res.ObjectKey})

	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		owner := fs.String("owner", "", "owner id")
		status := fs.String("status", "", "PENDING, AVAILABLE or FAILED")
		limit := fs.Int("limit", 0, "page size")
		token := fs.String("token", "", "continuation token")
		if err := fs.Parse(cmdArgs); err != nil {
			return err
		}
		res, err := c.List(ctx, *owner, *status, *limit, *token)
		if err != nil {
			return err
		}
		return printJSON(out, res)

	case "get":
		fs := flag.NewFlagSet("get", flag.ContinueOnError)
		dst := fs.String("o", "", "download the original to this file")
		if err := fs.Parse(cmdArgs); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errUsage
		}
		res, err := c.Get(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		if *dst == "" {
			return printJSON(out, res)
		}
		f, err := os.Create(*dst)
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := netx.Download(ctx, nil, res.DownloadURL, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d bytes to %s\n", n, *dst)
		return nil

	case "delete":
		if len(cmdArgs) != 1 {
			return errUsage
		}
		if err := c.Delete(ctx, cmdArgs[0]); err != nil {
			return err
		}
		return printJSON(out, map[string]string{"deletedImageId": cmdArgs[0]})
	}
	return errUsage
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
