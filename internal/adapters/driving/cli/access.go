package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var accessItem string

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Inspect access control decisions",
}

var accessCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Show what a user may do with an item",
	Long: `Derives the user's project roles from team membership and reports whether
they may read, edit or delete the item. Uses --as or identity.user_id.`,
	Example: `  sercha-kb access check --as alice --item design-doc-42`,
	Args:    cobra.NoArgs,
	RunE:    runAccessCheck,
}

var accessRolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the user's derived project roles",
	Args:  cobra.NoArgs,
	RunE:  runAccessRoles,
}

func init() {
	accessCheckCmd.Flags().StringVarP(&accessItem, "item", "i", "", "item id to check")
	_ = accessCheckCmd.MarkFlagRequired("item")
	accessCmd.AddCommand(accessCheckCmd)
	accessCmd.AddCommand(accessRolesCmd)
	rootCmd.AddCommand(accessCmd)
}

func runAccessCheck(cmd *cobra.Command, _ []string) error {
	if err := ensureRuntime(cmd); err != nil {
		return err
	}
	if accessService == nil || fixtureTarget == nil || fixtureTarget.Chunks == nil {
		return errors.New("access service not configured")
	}

	ctx := cmd.Context()
	subject, err := currentSubject(ctx)
	if err != nil {
		return err
	}
	if subject == nil {
		return fmt.Errorf("%w: set identity.user_id or pass --as", domain.ErrIdentityRequired)
	}

	item, err := fixtureTarget.Chunks.GetItem(ctx, accessItem)
	if err != nil {
		return fmt.Errorf("get item %s: %w", accessItem, err)
	}

	roles, err := accessService.DeriveProjectRoles(ctx, subject)
	if err != nil {
		cmd.PrintErrf("warning: role derivation failed, project access withheld: %v\n", err)
		roles = nil
	}

	p := paletteFor(cmd.OutOrStdout())
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:        %s\n", subject.SubjectID())
	fmt.Fprintf(out, "Item:        %s (%s, project %s)\n", item.ID, item.Sensitivity, orNone(item.ProjectID))
	if role, ok := roles[item.ProjectID]; ok {
		fmt.Fprintf(out, "Role:        %s\n", role)
	} else {
		fmt.Fprintf(out, "Role:        %s\n", "none")
	}
	fmt.Fprintf(out, "Read:        %s\n", yesNo(p, accessService.CanAccess(subject, item, roles)))
	fmt.Fprintf(out, "Edit:        %s\n", yesNo(p, accessService.CanEdit(subject, item)))
	fmt.Fprintf(out, "Delete:      %s\n", yesNo(p, accessService.CanDelete(subject, item)))
	return nil
}

func runAccessRoles(cmd *cobra.Command, _ []string) error {
	if err := ensureRuntime(cmd); err != nil {
		return err
	}
	if accessService == nil {
		return errors.New("access service not configured")
	}

	ctx := cmd.Context()
	subject, err := currentSubject(ctx)
	if err != nil {
		return err
	}
	if subject == nil {
		return fmt.Errorf("%w: set identity.user_id or pass --as", domain.ErrIdentityRequired)
	}
	if subject.HasScope(domain.ScopeSuperadmin) {
		cmd.Println("superadmin: unrestricted access")
		return nil
	}

	roles, err := accessService.DeriveProjectRoles(ctx, subject)
	if err != nil {
		return fmt.Errorf("derive roles: %w", err)
	}
	if len(roles) == 0 {
		cmd.Println("No project roles.")
		return nil
	}

	projects := make([]string, 0, len(roles))
	for p := range roles {
		projects = append(projects, p)
	}
	sort.Strings(projects)
	for _, p := range projects {
		cmd.Printf("%-24s %s\n", p, roles[p])
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
