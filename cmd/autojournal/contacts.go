package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tzeak/obsidian-autojournal/journal"
)

func contactsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Inspect how identifiers resolve against the contacts file",
	}
	cmd.AddCommand(contactsLookupCmd(a))
	cmd.AddCommand(contactsRewriteCmd(a))
	cmd.AddCommand(contactsNameCmd(a))
	cmd.AddCommand(contactsKeysCmd(a))
	return cmd
}

func (a *app) requireDirectory() (*journal.Directory, error) {
	dir, err := a.loadDirectory()
	if err != nil {
		return nil, err
	}
	if phones, emails := dir.Len(); phones+emails == 0 {
		return nil, configError{errors.New("no contacts loaded (set contacts_path or pass --contacts)")}
	}
	return dir, nil
}

func contactsLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <phone-or-email>...",
		Short: "Resolve phone numbers or email addresses to contact names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.requireDirectory()
			if err != nil {
				return err
			}
			for _, id := range args {
				if name, ok := dir.Lookup(id); ok {
					fmt.Fprintf(a.stdout, "id=%q found=true name=%q\n", id, name)
				} else {
					fmt.Fprintf(a.stdout, "id=%q found=false\n", id)
				}
			}
			return nil
		},
	}
}

func contactsRewriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite [file]",
		Short: "Replace phone numbers and emails in text with contact names (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.requireDirectory()
			if err != nil {
				return err
			}
			var b []byte
			if len(args) == 0 || args[0] == "-" {
				b, err = io.ReadAll(cmd.InOrStdin())
			} else {
				b, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			_, err = io.WriteString(a.stdout, journal.NewRewriter(dir, a.logger).Rewrite(string(b)))
			return err
		},
	}
}

func contactsNameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "name <export-file-name>...",
		Short: "Show how export file names are classified and named",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.loadDirectory()
			if err != nil {
				return err
			}
			namer := journal.NewNamer(dir, a.logger)
			for _, raw := range args {
				raw = strings.TrimSuffix(raw, ".txt")
				c := namer.Classify(raw)
				fmt.Fprintf(a.stdout, "raw=%q kind=%s name=%q\n", raw, c.Kind, namer.Resolve(raw))
			}
			return nil
		},
	}
}

func contactsKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys <phone>...",
		Short: "Print the lookup keys a phone number normalizes to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range args {
				fmt.Fprintf(a.stdout, "raw=%q keys=%s\n", raw, strings.Join(journal.NormalizePhone(raw), ","))
			}
			return nil
		},
	}
}
