package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/inkdrop/inkdrop/cmd/cli/auth"
	"github.com/inkdrop/inkdrop/cmd/cli/posts"
	"github.com/inkdrop/inkdrop/cmd/cli/root"
	"github.com/inkdrop/inkdrop/cmd/cli/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	posts.InitPosts(rootCmd)
	users.InitUsers(rootCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
