package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "render":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: overlaystudio render <session-id> <output-file>")
			os.Exit(1)
		}
		if err := runRender(os.Args[2], os.Args[3]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("overlaystudio %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`overlaystudio - An image overlay editor served over HTTP

Usage:
  overlaystudio <command> [arguments]

Commands:
  serve                      Start the HTTP server
  render <session-id> <out>  Export a saved session to an image file
  version                    Print the overlaystudio version
  help                       Show this help message

Environment:
  STUDIO_ADDR, STUDIO_NAME, STUDIO_DATABASE, STUDIO_UPLOADS, STUDIO_CATALOG,
  STUDIO_STATIC, STUDIO_SESSION_SECRET (required for serve), STUDIO_COOKIE_SECURE

Examples:
  overlaystudio serve
  overlaystudio render 6f1c... poster.png`)
}
