package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/s0up4200/cinerec/search"
	"github.com/s0up4200/cinerec/view"
)

var browseGenre string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Search the catalog interactively",
	Long: `Search the catalog interactively. Type to search; results appear once
you stop typing for the debounce window. With --genre, the catalog shown
before and after a search is limited to that genre.

Commands:
  :n  next page      :p  previous page
  :c  clear search   :r  refresh
  :q  quit`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&browseGenre, "genre", "g", "", "Limit the catalog to a genre")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	o := search.New(movies,
		search.WithDebounce(cfg.Search.Debounce),
		search.WithPageSize(cfg.Search.PageSize),
		search.WithGenre(browseGenre),
		search.WithLogger(logger),
	)
	defer o.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "Type to search, :q to quit.")
	return browse(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), o)
}

// browse feeds input lines to the orchestrator until EOF or :q. Every
// settled view is rendered as it is applied. At EOF it waits for the last
// query to settle so piped input still prints its results.
func browse(ctx context.Context, in io.Reader, out io.Writer, o *search.Orchestrator) error {
	var mu sync.Mutex
	settled := make(chan struct{}, 1)
	unsubscribe := o.Subscribe(func(v search.View) {
		if v.State != search.StateIdle {
			return
		}
		mu.Lock()
		renderView(out, v)
		mu.Unlock()

		select {
		case settled <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	o.Refresh()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case ":q":
			return nil
		case ":n":
			v := o.View()
			if tp := v.TotalPages(); tp == 0 || v.Page < tp {
				o.SetPage(v.Page + 1)
			}
		case ":p":
			if v := o.View(); v.Page > 1 {
				o.SetPage(v.Page - 1)
			}
		case ":c":
			o.Clear()
		case ":r":
			o.Refresh()
		default:
			o.SetQuery(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	for o.View().State != search.StateIdle {
		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func renderView(out io.Writer, v search.View) {
	if v.Err != nil {
		fmt.Fprintln(out, formatter.FormatNotice(view.Notice{Level: view.LevelError, Text: v.Err.Error()}))
		return
	}

	if v.Mode == search.ModeSearch {
		fmt.Fprintf(out, "\nResults for %q", v.Query)
	} else {
		fmt.Fprint(out, "\nCatalog")
	}
	fmt.Fprint(out, formatter.FormatMovieList(v.Items, v.Page, v.TotalPages(), v.Total, view.FormatOptions{ShowGenres: true}))
	fmt.Fprintln(out)
}
