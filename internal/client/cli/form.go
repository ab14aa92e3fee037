package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/dmitrijs2005/fieldreport/internal/filex"
)

// MaxPhotoBytes caps a single attachment read from disk.
const MaxPhotoBytes = 10 << 20

// readPhoto is a test seam for reading attachments from disk.
var readPhoto = func(path string) ([]byte, error) {
	return filex.ReadLimited(path, MaxPhotoBytes)
}

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}

// save writes the current entry through to the draft slot.
func (a *App) save(ctx context.Context) error {
	a.service.SaveDraft(ctx, a.state)
	return nil
}

func (a *App) Show(ctx context.Context) error {
	printlnFn(formatState(a.state))
	return nil
}

func formatState(s *models.FormState) string {
	var b strings.Builder

	switch s.Location.Mode {
	case models.LocationCoords:
		fmt.Fprintf(&b, "Location: %g, %g (±%g m)\n", s.Location.Latitude, s.Location.Longitude, s.Location.AccuracyM)
	case models.LocationPlace:
		fmt.Fprintf(&b, "Location: place %s\n", s.Location.PlaceID)
	default:
		b.WriteString("Location: not set\n")
	}

	fmt.Fprintf(&b, "Category: %s", orDash(s.Category))
	if s.Subcategory != "" {
		fmt.Fprintf(&b, " / %s", s.Subcategory)
	}
	b.WriteString("\n")

	if len(s.Fields) > 0 {
		b.WriteString("Fields:\n")
		for _, k := range sortedKeys(s.Fields) {
			fmt.Fprintf(&b, "  %s = %s\n", k, s.Fields[k])
		}
	}

	tables := make([]string, 0, len(s.Tables))
	for t := range s.Tables {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(&b, "Table %s:\n", t)
		for _, row := range s.Tables[t] {
			fmt.Fprintf(&b, "  %s: %s\n", row.Item, strings.Join(row.Values, ", "))
		}
	}

	fmt.Fprintf(&b, "Tags: %s\n", orDash(strings.Join(s.TagList(), ", ")))
	fmt.Fprintf(&b, "Notes: %s\n", orDash(s.Notes))

	fmt.Fprintf(&b, "Photos: %d", len(s.Attachments))
	for _, att := range s.Attachments {
		fmt.Fprintf(&b, "\n  %s (%d bytes)", att.Name, len(att.Data))
	}

	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a *App) Coords(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usage("coords <lat> <lon> <accuracy_m>")
	}

	var v [3]float64
	for i, s := range args {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		v[i] = f
	}

	lat, lon, acc := v[0], v[1], v[2]
	switch {
	case lat < -90 || lat > 90:
		return errors.New("latitude must be within [-90, 90]")
	case lon < -180 || lon > 180:
		return errors.New("longitude must be within [-180, 180]")
	case acc < 0:
		return errors.New("accuracy must not be negative")
	}

	a.state.SetCoords(lat, lon, acc)
	return a.save(ctx)
}

func (a *App) Place(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("place <id>")
	}
	a.state.SetPlace(args[0])
	return a.save(ctx)
}

func (a *App) Category(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("category <name>")
	}
	a.state.Category = strings.Join(args, " ")
	return a.save(ctx)
}

func (a *App) Sub(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("sub <name>")
	}
	a.state.Subcategory = strings.Join(args, " ")
	return a.save(ctx)
}

func (a *App) Set(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("set <field> [value...]")
	}
	a.state.SetField(args[0], strings.Join(args[1:], " "))
	return a.save(ctx)
}

func (a *App) Row(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usage("row <table> <item> <v1> [v2]")
	}
	a.state.SetTableRow(args[0], args[1], args[2:]...)
	return a.save(ctx)
}

func (a *App) Tag(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("tag <tag>")
	}
	a.state.AddTag(args[0])
	return a.save(ctx)
}

func (a *App) Untag(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("untag <tag>")
	}
	a.state.RemoveTag(args[0])
	return a.save(ctx)
}

// Note replaces the notes; with no text it clears them.
func (a *App) Note(ctx context.Context, args []string) error {
	a.state.Notes = strings.Join(args, " ")
	return a.save(ctx)
}

func (a *App) Photo(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("photo <path>")
	}
	data, err := readPhoto(args[0])
	if err != nil {
		return err
	}
	a.state.AddAttachment(filepath.Base(args[0]), data)
	printlnFn(fmt.Sprintf("Attached %s (%d bytes)", filepath.Base(args[0]), len(data)))
	return a.save(ctx)
}
