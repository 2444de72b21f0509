package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aktagon/dailypost/internal/postfile"
)

var maxLength int

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Maintenance tasks for an existing posts directory",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var addHashesCmd = &cobra.Command{
	Use:   "add-hashes <posts-dir>",
	Short: "Rename posts to the hashed filename the generator produces",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		renamed, err := addHashes(args[0], maxLength)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %d posts\n", renamed)
		return nil
	},
}

var removeDuplicatesCmd = &cobra.Command{
	Use:   "remove-duplicates <posts-dir>",
	Short: "Interactively delete posts sharing a title hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := removeDuplicates(args[0], bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout())
		return err
	},
}

func init() {
	addHashesCmd.Flags().IntVar(&maxLength, "max-length", 50, "slug.max_length the posts were generated with")
	rootCmd.AddCommand(addHashesCmd, removeDuplicatesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

// markdownFiles lists the .md files under dir in lexical order
func markdownFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, nil
}

// addHashes renames every unhashed post to postfile.Filename(title, date,
// maxLen, true) so a later run with hash_suffix enabled finds the same file
func addHashes(dir string, maxLen int) (int, error) {
	files, err := markdownFiles(dir)
	if err != nil {
		return 0, err
	}

	renamed := 0
	for _, path := range files {
		ok, err := renameWithHash(path, maxLen)
		if err != nil {
			log.Printf("Skipping %s: %v", filepath.Base(path), err)
			continue
		}
		if ok {
			renamed++
		}
	}
	return renamed, nil
}

func renameWithHash(path string, maxLen int) (bool, error) {
	name := filepath.Base(path)
	if postfile.HashOf(name) != "" {
		return false, nil
	}

	date, err := postfile.DateOf(name)
	if err != nil {
		return false, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	fm, err := postfile.ParseFrontMatter(string(content))
	if err != nil {
		return false, err
	}
	if fm.Title == "" {
		return false, errors.New("empty title")
	}

	target := postfile.Filename(fm.Title, date, maxLen, true)
	targetPath := filepath.Join(filepath.Dir(path), target)
	if _, err := os.Stat(targetPath); err == nil {
		return false, fmt.Errorf("%s already exists", target)
	}

	log.Printf("Renaming %s -> %s", name, target)
	if err := os.Rename(path, targetPath); err != nil {
		return false, err
	}
	return true, nil
}

// removeDuplicates groups hashed posts by title hash, keeps the oldest of
// each group and asks before deleting the rest. It returns how many posts
// were deleted.
func removeDuplicates(dir string, in *bufio.Reader, out io.Writer) (int, error) {
	files, err := markdownFiles(dir)
	if err != nil {
		return 0, err
	}

	groups := make(map[string][]string)
	for _, path := range files {
		if hash := postfile.HashOf(filepath.Base(path)); hash != "" {
			groups[hash] = append(groups[hash], path)
		}
	}

	hashes := make([]string, 0, len(groups))
	for hash, paths := range groups {
		if len(paths) > 1 {
			hashes = append(hashes, hash)
		}
	}
	sort.Strings(hashes)

	removed := 0
	for _, hash := range hashes {
		paths := groups[hash]
		fmt.Fprintf(out, "\n%d posts share title hash %s\n", len(paths), hash)
		fmt.Fprintf(out, "  KEEP: %s\n", filepath.Base(paths[0]))

		for _, path := range paths[1:] {
			if !confirmDelete(in, out, path) {
				fmt.Fprintf(out, "  SKIP: %s\n", filepath.Base(path))
				continue
			}
			if err := os.Remove(path); err != nil {
				log.Printf("Removing %s: %v", path, err)
				continue
			}
			removed++
			fmt.Fprintf(out, "  REMOVED: %s\n", filepath.Base(path))
		}
	}

	fmt.Fprintf(out, "\nRemoved %d duplicate posts\n", removed)
	return removed, nil
}

// confirmDelete asks until it reads yes or no; EOF counts as no
func confirmDelete(in *bufio.Reader, out io.Writer, path string) bool {
	for {
		fmt.Fprintf(out, "  DELETE %s? [y/N]: ", filepath.Base(path))
		line, err := in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch {
		case answer == "y" || answer == "yes":
			return true
		case answer == "" || answer == "n" || answer == "no" || err != nil:
			return false
		}
		fmt.Fprintln(out, "  Please enter y or n.")
	}
}
