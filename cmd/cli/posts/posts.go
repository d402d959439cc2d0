package posts

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/inkdrop/inkdrop/cmd/cli/client"
	"github.com/inkdrop/inkdrop/cmd/cli/config"
	"github.com/inkdrop/inkdrop/cmd/cli/output"
	"github.com/inkdrop/inkdrop/internal/models"
	"github.com/spf13/cobra"
)

// ==========================
// Init Posts
// ==========================
func InitPosts(rootCmd *cobra.Command) {
	postsCmd := &cobra.Command{
		Use:   "posts",
		Short: "Read and manage posts",
	}

	postsCmd.AddCommand(
		listPostsCmd(),
		getPostCmd(),
		draftsCmd(),
		createPostCmd(),
		updatePostCmd(),
		transitionCmd("publish", "Publish a draft"),
		transitionCmd("unpublish", "Return a published post to drafts"),
		deletePostCmd(),
	)

	rootCmd.AddCommand(postsCmd)
}

func api() *client.Client {
	return client.New(config.APIURL())
}

type postResponse struct {
	Message string      `json:"message"`
	Post    models.Post `json:"post"`
}

// ==========================
// LIST
// ==========================
func listPostsCmd() *cobra.Command {
	var limit, offset int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published posts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))

			var resp struct {
				Posts      []models.Post `json:"posts"`
				Pagination struct {
					Limit  int `json:"limit"`
					Offset int `json:"offset"`
					Count  int `json:"count"`
				} `json:"pagination"`
			}
			if err := api().Do(cmd.Context(), http.MethodGet, "/api/posts?"+q.Encode(), "", nil, &resp); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), resp)
			}
			output.Posts(cmd.OutOrStdout(), resp.Posts)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "page size (1-100)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of posts to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")

	return cmd
}

// ==========================
// GET (drafts visible to their author when logged in)
// ==========================
func getPostCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get [slug]",
		Short: "Show a post by slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/posts/" + url.PathEscape(args[0])
			var resp postResponse

			err := api().DoAuthed(cmd.Context(), http.MethodGet, path, nil, &resp)
			if errors.Is(err, config.ErrNoSession) {
				err = api().Do(cmd.Context(), http.MethodGet, path, "", nil, &resp)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), resp.Post)
			}
			output.Post(cmd.OutOrStdout(), resp.Post)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")

	return cmd
}

// ==========================
// DRAFTS
// ==========================
func draftsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "List your drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Drafts []models.Post `json:"drafts"`
			}
			if err := api().DoAuthed(cmd.Context(), http.MethodGet, "/api/posts/my/drafts", nil, &resp); err != nil {
				return err
			}
			output.Posts(cmd.OutOrStdout(), resp.Drafts)
			return nil
		},
	}
}

// postFlags binds the editable post fields. Only flags the user set are sent.
type postFlags struct {
	title, content, contentFile, slug, excerpt, coverImageURL string
}

func (f *postFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "post title")
	cmd.Flags().StringVar(&f.content, "content", "", "post body (markdown)")
	cmd.Flags().StringVar(&f.contentFile, "content-file", "", "read the post body from a file")
	cmd.Flags().StringVar(&f.slug, "slug", "", "URL slug (lowercase letters, digits, hyphens)")
	cmd.Flags().StringVar(&f.excerpt, "excerpt", "", "short summary")
	cmd.Flags().StringVar(&f.coverImageURL, "cover-image-url", "", "cover image URL")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")
}

func (f *postFlags) payload(cmd *cobra.Command) (map[string]string, error) {
	p := map[string]string{}
	set := func(flag, key, value string) {
		if cmd.Flags().Changed(flag) {
			p[key] = value
		}
	}
	set("title", "title", f.title)
	set("content", "content", f.content)
	set("slug", "slug", f.slug)
	set("excerpt", "excerpt", f.excerpt)
	set("cover-image-url", "coverImageUrl", f.coverImageURL)

	if f.contentFile != "" {
		b, err := os.ReadFile(f.contentFile)
		if err != nil {
			return nil, fmt.Errorf("read content file: %w", err)
		}
		p["content"] = string(b)
	}
	return p, nil
}

// ==========================
// CREATE
// ==========================
func createPostCmd() *cobra.Command {
	var f postFlags
	var publish bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := f.payload(cmd)
			if err != nil {
				return err
			}
			var resp postResponse
			if err := api().DoAuthed(cmd.Context(), http.MethodPost, "/api/posts", payload, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", resp.Message, resp.Post.Slug, resp.Post.ID)

			if publish {
				var pub postResponse
				path := "/api/posts/" + resp.Post.ID.String() + "/publish"
				if err := api().DoAuthed(cmd.Context(), http.MethodPost, path, nil, &pub); err != nil {
					return fmt.Errorf("created but failed to publish: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), pub.Message)
			}
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&publish, "publish", false, "publish immediately after creating")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// ==========================
// UPDATE
// ==========================
func updatePostCmd() *cobra.Command {
	var f postFlags

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Edit one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := f.payload(cmd)
			if err != nil {
				return err
			}
			if len(payload) == 0 {
				return errors.New("nothing to update")
			}
			var resp postResponse
			if err := api().DoAuthed(cmd.Context(), http.MethodPut, "/api/posts/"+url.PathEscape(args[0]), payload, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Message, resp.Post.Slug)
			return nil
		},
	}
	f.bind(cmd)

	return cmd
}

// ==========================
// PUBLISH / UNPUBLISH
// ==========================
func transitionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp postResponse
			path := "/api/posts/" + url.PathEscape(args[0]) + "/" + action
			if err := api().DoAuthed(cmd.Context(), http.MethodPost, path, nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Message, resp.Post.Slug)
			return nil
		},
	}
}

// ==========================
// DELETE
// ==========================
func deletePostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Message string `json:"message"`
			}
			if err := api().DoAuthed(cmd.Context(), http.MethodDelete, "/api/posts/"+url.PathEscape(args[0]), nil, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
}
