package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"telegram-customer-calendar/internal/calendar"
	"telegram-customer-calendar/internal/models"
)

func newStickyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sticky",
		Short: "Manage sticky notes and their reminders",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print every sticky note with its blocks",
		Args:  cobra.NoArgs,
		RunE:  withApp(runStickyList),
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Create a sticky note",
		Args:  cobra.NoArgs,
		RunE:  withApp(runStickyAdd),
	}
	noteFlags(add)
	_ = add.MarkFlagRequired("title")

	update := &cobra.Command{
		Use:   "update <note-id>",
		Short: "Change title, color, pin or reminder; an empty --remind-date clears the reminder",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runStickyUpdate),
	}
	noteFlags(update)

	archive := &cobra.Command{
		Use:   "archive <note-id>",
		Short: "Archive a note; archived notes are not listed or reminded",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runStickyArchive),
	}
	archive.Flags().Bool("restore", false, "take the note out of the archive")

	del := &cobra.Command{
		Use:   "delete <note-id>",
		Short: "Delete a note for good",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runStickyDelete),
	}

	cmd.AddCommand(list, add, update, archive, del, newBlockCommand())
	return cmd
}

func noteFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "note title")
	cmd.Flags().String("color", "yellow", "card color")
	cmd.Flags().Bool("pinned", false, "keep the note on top")
	cmd.Flags().String("remind-date", "", "reminder day, DD.MM.YYYY or YYYY-MM-DD")
	cmd.Flags().String("remind-time", "", "reminder time HH:MM (09:00 when only the day is given)")
}

func newBlockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Edit the lines of a sticky note",
	}

	add := &cobra.Command{
		Use:   "add <note-id> <text>",
		Short: "Append a text or todo line",
		Args:  cobra.ExactArgs(2),
		RunE:  withApp(runBlockAdd),
	}
	add.Flags().Bool("todo", false, "add a checkbox line")

	done := &cobra.Command{
		Use:   "done <note-id> <block-id>",
		Short: "Toggle a todo line",
		Args:  cobra.ExactArgs(2),
		RunE:  withApp(runBlockDone),
	}

	del := &cobra.Command{
		Use:   "delete <note-id> <block-id>",
		Short: "Remove a line",
		Args:  cobra.ExactArgs(2),
		RunE:  withApp(runBlockDelete),
	}

	cmd.AddCommand(add, done, del)
	return cmd
}

func runStickyList(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	notes, err := a.db.ListStickyNotes(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(notes) == 0 {
		fmt.Fprintln(out, "no sticky notes")
		return nil
	}
	for _, n := range notes {
		var tags []string
		if n.Pinned {
			tags = append(tags, "pinned")
		}
		if n.Archived {
			tags = append(tags, "archived")
		}
		if n.ReminderDate != "" {
			tags = append(tags, "remind "+n.ReminderDate+" "+n.ReminderTime)
		}
		fmt.Fprintf(out, "%s  %s [%s] %s\n", n.ID, n.Title, n.Color, strings.Join(tags, ", "))
		for _, b := range n.Blocks {
			mark := "-"
			if b.Type == models.BlockTodo {
				mark = "[ ]"
				if b.Done {
					mark = "[x]"
				}
			}
			fmt.Fprintf(out, "    %s %s  (%s)\n", mark, b.Content, b.ID)
		}
	}
	return nil
}

func runStickyAdd(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	n := models.StickyNote{}
	if err := applyNoteFlags(a, cmd, &n); err != nil {
		return err
	}
	if strings.TrimSpace(n.Title) == "" {
		return errors.New("title is required")
	}
	if err := a.db.CreateStickyNote(ctx, &n); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created sticky note %s\n", n.ID)
	return nil
}

func runStickyUpdate(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	n, err := a.db.GetStickyNote(ctx, args[0])
	if err != nil {
		return errors.Wrapf(err, "sticky note %s", args[0])
	}
	if err := applyNoteFlags(a, cmd, n); err != nil {
		return err
	}
	if err := a.db.UpdateStickyNote(ctx, *n); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated sticky note %s\n", n.ID)
	return nil
}

// applyNoteFlags copies the flags that were set onto n. Reminder values are
// normalized to a stored date key and HH:MM.
func applyNoteFlags(a *app, cmd *cobra.Command, n *models.StickyNote) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		n.Title, _ = flags.GetString("title")
		n.Title = strings.TrimSpace(n.Title)
	}
	if flags.Changed("color") || n.Color == "" {
		n.Color, _ = flags.GetString("color")
	}
	if flags.Changed("pinned") {
		n.Pinned, _ = flags.GetBool("pinned")
	}

	if !flags.Changed("remind-date") && !flags.Changed("remind-time") {
		return nil
	}
	date, _ := flags.GetString("remind-date")
	hm, _ := flags.GetString("remind-time")
	if !flags.Changed("remind-date") {
		date = n.ReminderDate
	}
	date, hm = strings.TrimSpace(date), strings.TrimSpace(hm)

	if date == "" {
		if hm != "" {
			return errors.New("--remind-time needs --remind-date")
		}
		n.ReminderDate, n.ReminderTime = "", ""
		return nil
	}
	key, err := dateKey(date, a.clk.Now().In(a.loc), a.loc)
	if err != nil {
		return err
	}
	if hm == "" {
		hm = n.ReminderTime
	}
	if hm == "" {
		hm = "09:00"
	}
	if _, err := calendar.Instant(key, hm, a.loc); err != nil {
		return err
	}
	n.ReminderDate, n.ReminderTime = key, hm
	return nil
}

func runStickyArchive(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	n, err := a.db.GetStickyNote(ctx, args[0])
	if err != nil {
		return errors.Wrapf(err, "sticky note %s", args[0])
	}
	restore, _ := cmd.Flags().GetBool("restore")
	n.Archived = !restore
	if err := a.db.UpdateStickyNote(ctx, *n); err != nil {
		return err
	}
	if restore {
		fmt.Fprintf(cmd.OutOrStdout(), "restored sticky note %s\n", n.ID)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "archived sticky note %s\n", n.ID)
	}
	return nil
}

func runStickyDelete(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	if err := a.db.DeleteStickyNote(ctx, args[0]); err != nil {
		return errors.Wrapf(err, "sticky note %s", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted sticky note %s\n", args[0])
	return nil
}

func runBlockAdd(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(args[1])
	if text == "" {
		return errors.New("block text is empty")
	}
	b := models.Block{Type: models.BlockText, Content: text}
	if todo, _ := cmd.Flags().GetBool("todo"); todo {
		b.Type = models.BlockTodo
	}
	b, err := a.db.AddBlock(ctx, args[0], b)
	if err != nil {
		return errors.Wrapf(err, "sticky note %s", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added block %s\n", b.ID)
	return nil
}

func runBlockDone(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	n, err := a.db.GetStickyNote(ctx, args[0])
	if err != nil {
		return errors.Wrapf(err, "sticky note %s", args[0])
	}
	for i := range n.Blocks {
		b := &n.Blocks[i]
		if b.ID != args[1] {
			continue
		}
		if b.Type != models.BlockTodo {
			return errors.Errorf("block %s is not a todo", b.ID)
		}
		b.Done = !b.Done
		if err := a.db.UpdateStickyNote(ctx, *n); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "block %s done: %t\n", b.ID, b.Done)
		return nil
	}
	return errors.Errorf("block %s not found in note %s", args[1], args[0])
}

func runBlockDelete(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	if err := a.db.DeleteBlock(ctx, args[0], args[1]); err != nil {
		return errors.Wrapf(err, "block %s", args[1])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted block %s\n", args[1])
	return nil
}
