package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/sketchpond/api"
	"github.com/pthm-cable/sketchpond/sprite"
)

// row is one drawing as printed by list and rank.
type row struct {
	FishID    int64     `csv:"fish_id"`
	Artist    string    `csv:"artist_name"`
	UserID    int64     `csv:"user_id"`
	Likes     int       `csv:"likes"`
	Dislikes  int       `csv:"dislikes"`
	CreatedAt time.Time `csv:"created_at"`
}

func toRows(fishes []api.Fish) []*row {
	rows := make([]*row, len(fishes))
	for i, f := range fishes {
		rows[i] = &row{
			FishID:    f.FishID,
			Artist:    f.ArtistName,
			UserID:    f.UserID,
			Likes:     f.Likes,
			Dislikes:  f.Dislikes,
			CreatedAt: f.CreatedAt,
		}
	}
	return rows
}

// writeRows prints rows as CSV or as an aligned table with a summary line.
func writeRows(w io.Writer, rows []*row, asCSV bool) error {
	if asCSV {
		if err := gocsv.Marshal(rows, w); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tARTIST\tLIKES\tDISLIKES\tCREATED")
	likes := make([]float64, len(rows))
	for i, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", r.FishID, r.Artist, r.Likes, r.Dislikes, r.CreatedAt.Format("2006-01-02 15:04"))
		likes[i] = float64(r.Likes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(rows) > 0 {
		fmt.Fprintf(w, "%d drawings, mean likes %.1f\n", len(rows), stat.Mean(likes, nil))
	}
	return nil
}

// readDrawing loads a drawing file as a submission payload. Raster images
// are cropped to their content and re-encoded as a PNG data URL; SVG files
// are sent as-is.
func readDrawing(path string, padding int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading drawing: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(data), nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	return sprite.EncodeDataURL(sprite.CropToContent(img, padding))
}
