package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/avdeev/driveauth/internal/cli"
	"github.com/avdeev/driveauth/internal/directory"
)

func main() {

	baseURL := flag.String("u", "https://bcs.api.bdpa.org/v2", "identity directory base URL")
	token := flag.String("b", "", "identity directory bearer token")
	timeout := flag.Int("o", 10, "directory timeout (in seconds)")
	flag.Parse()

	dir := directory.NewHTTPClient(*baseURL, *token, time.Duration(*timeout)*time.Second)
	app := cli.NewApp(dir, os.Stdout)

	if err := app.Run(context.Background(), flag.Args()); err != nil {
		log.Fatalf("%v", err)
	}

}
