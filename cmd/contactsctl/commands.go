package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	imodel "gitlab.com/dirk.krummacker/contact-manager/internal/model"
	"gitlab.com/dirk.krummacker/contact-manager/internal/store"
	"gitlab.com/dirk.krummacker/contact-manager/internal/view"
	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
)

// recordingLister remembers the error of the last list call, which the store only logs.
type recordingLister struct {
	store.Lister
	err error
}

func (l *recordingLister) List(ctx context.Context) ([]model.Contact, error) {
	contacts, err := l.Lister.List(ctx)
	l.err = err
	return contacts, err
}

// loadStore fetches the contacts and derives the tags.
func (o *options) loadStore(ctx context.Context) (*store.Store, error) {
	lister := &recordingLister{Lister: o.client}
	s := store.New(lister, o.logger)
	s.Refresh(ctx)
	return s, lister.err
}

func newListCmd(o *options) *cobra.Command {
	var filter imodel.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts, optionally filtered by name and tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			contacts := filter.Apply(s.Contacts())
			if len(contacts) == 0 {
				if s.Len() == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), view.NoContactsMessage)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), view.NoMatchingContactsMessage)
				}
				return nil
			}
			return printContacts(cmd.OutOrStdout(), contacts)
		},
	}
	cmd.Flags().StringVarP(&filter.SearchQuery, "query", "q", "", "part of the full name, ignoring case")
	cmd.Flags().StringVarP(&filter.CurrentTag, "tag", "t", "", "tag the contacts must carry")
	return cmd
}

func newGetCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			contact, err := o.client.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printContacts(cmd.OutOrStdout(), []model.Contact{contact})
		},
	}
}

// contactFlags are the flags of the add and edit commands.
type contactFlags struct {
	fullName    string
	email       string
	phoneNumber string
	tags        []string
}

func (f *contactFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.fullName, "name", "", "full name")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.phoneNumber, "phone", "", "telephone number")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "comma-separated tags")
}

// apply copies the flags that were set on the command line into the contact.
func (f *contactFlags) apply(cmd *cobra.Command, contact *model.Contact) {
	if cmd.Flags().Changed("name") {
		contact.FullName = strings.TrimSpace(f.fullName)
	}
	if cmd.Flags().Changed("email") {
		contact.Email = strings.TrimSpace(f.email)
	}
	if cmd.Flags().Changed("phone") {
		contact.PhoneNumber = strings.TrimSpace(f.phoneNumber)
	}
	if cmd.Flags().Changed("tags") {
		contact.Tags = model.NormalizeTags(model.JoinTags(f.tags))
	}
}

// validate checks the required fields before the contact is sent.
func validate(contact model.Contact) error {
	v := validator.New()
	v.SetTagName("binding")
	err := v.Struct(contact)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	var missing []string
	for _, fieldErr := range fieldErrs {
		missing = append(missing, fieldErr.Field())
	}
	return fmt.Errorf("missing %s", strings.Join(missing, ", "))
}

func newAddCmd(o *options) *cobra.Command {
	var flags contactFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var contact model.Contact
			flags.apply(cmd, &contact)
			if err := validate(contact); err != nil {
				return err
			}
			created, err := o.client.Create(cmd.Context(), contact)
			if err != nil {
				return fmt.Errorf("failed to add contact: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is added! (id %d)\n", created.FullName, created.Id)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newEditCmd(o *options) *cobra.Command {
	var flags contactFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the fields of a contact given on the command line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			contact, err := o.client.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			flags.apply(cmd, &contact)
			if err := validate(contact); err != nil {
				return err
			}
			updated, err := o.client.Update(cmd.Context(), id, contact)
			if err != nil {
				return fmt.Errorf("failed to update contact: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s's information updated!\n", updated.FullName)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newDeleteCmd(o *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a contact after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				contact, err := o.client.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Do you want to delete %s ?", contact.FullName)) {
					return nil
				}
			}
			if err := o.client.Remove(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Contact deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newTagsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the tags used by the contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			for _, tag := range s.Tags() {
				fmt.Fprintln(cmd.OutOrStdout(), tag)
			}
			return nil
		},
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// confirm asks a yes/no question and returns true for an answer starting with y.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y")
}

func printContacts(out io.Writer, contacts []model.Contact) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tTAGS")
	for _, c := range contacts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.Id, c.FullName, c.Email, c.PhoneNumber, strings.Join(c.TagList(), " "))
	}
	return w.Flush()
}
