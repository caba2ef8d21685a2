package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/robocof/robocof/internal/config"
	"github.com/robocof/robocof/internal/identity"
	"github.com/robocof/robocof/internal/logging"
)

var identitiesCmd = &cobra.Command{
	Use:     "identities",
	Aliases: []string{"users"},
	Short:   "Manage the known users",
	Long: `Manage the users the identity detector recognizes.

Each user is one YAML file in identity.reference_dir (or --dir).`,
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known users",
	Args:  cobra.NoArgs,
	RunE:  runIdentitiesList,
}

var identitiesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentitiesAdd,
}

var identitiesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentitiesRemove,
}

var (
	identitiesDir         string
	identitiesDisplayName string
	identitiesAliases     string
	identitiesImages      string
)

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesListCmd)
	identitiesCmd.AddCommand(identitiesAddCmd)
	identitiesCmd.AddCommand(identitiesRemoveCmd)

	identitiesCmd.PersistentFlags().StringVar(&identitiesDir, "dir", "", "reference directory (default identity.reference_dir)")
	identitiesAddCmd.Flags().StringVar(&identitiesDisplayName, "display-name", "", "human readable name")
	identitiesAddCmd.Flags().StringVar(&identitiesAliases, "aliases", "", "comma separated names the recognizer may report for this user")
	identitiesAddCmd.Flags().StringVar(&identitiesImages, "images", "", "comma separated reference image paths")
}

func openRegistry() (*identity.Registry, error) {
	dir := identitiesDir
	if dir == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		dir = cfg.Identity.ReferenceDir
	}
	if dir == "" {
		return nil, fmt.Errorf("no reference directory: set identity.reference_dir or pass --dir")
	}
	return identity.NewRegistry(dir, logging.NopLogger(), nil)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func runIdentitiesList(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	users := reg.Users()
	if len(users) == 0 {
		fmt.Fprintf(out, "No users in %s\n", reg.Dir())
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDISPLAY NAME\tALIASES\tIMAGES")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", u.Name, u.DisplayName, strings.Join(u.Aliases, ","), len(u.ReferenceImages))
	}
	return w.Flush()
}

func runIdentitiesAdd(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}

	user := identity.User{
		Name:            args[0],
		DisplayName:     identitiesDisplayName,
		Aliases:         splitList(identitiesAliases),
		ReferenceImages: splitList(identitiesImages),
	}
	if err := reg.Add(user); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%d users)\n", user.Name, reg.Len())
	return nil
}

func runIdentitiesRemove(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	if err := reg.Remove(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%d users)\n", args[0], reg.Len())
	return nil
}
