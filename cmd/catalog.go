package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytcurator/internal/models"
	"github.com/desertthunder/ytcurator/internal/shared"
)

// Search prints songs matching the query argument.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query, err := requiredArg(cmd, "query")
	if err != nil {
		return err
	}

	r.logger.Info("searching youtube music", "query", query)
	songs := r.youtube().Search(ctx, query, cmd.Int("limit"))
	return r.writeSongs(cmd, fmt.Sprintf("Results for '%s'", query), songs)
}

// Artist prints the top songs of the best matching artist.
func (r *Runner) Artist(ctx context.Context, cmd *cli.Command) error {
	name, err := requiredArg(cmd, "name")
	if err != nil {
		return err
	}

	r.logger.Info("fetching artist songs", "artist", name)
	songs := r.youtube().TopSongsForArtist(ctx, name, cmd.Int("limit"))
	return r.writeSongs(cmd, fmt.Sprintf("Top songs by %s", name), songs)
}

// Radio seeds recommendations with the first search hit for the query argument.
func (r *Runner) Radio(ctx context.Context, cmd *cli.Command) error {
	query, err := requiredArg(cmd, "query")
	if err != nil {
		return err
	}

	hits := r.youtube().Search(ctx, query, 1)
	if len(hits) == 0 {
		return fmt.Errorf("%w: no song matches '%s'", shared.ErrNotFound, query)
	}
	seed := hits[0]

	r.logger.Info("fetching recommendations", "seed", seed.ID, "title", seed.Title)
	songs := r.youtube().Recommendations(ctx, seed.ID, cmd.Int("limit"))
	return r.writeSongs(cmd, fmt.Sprintf("Recommendations based on '%s'", seed.Title), songs)
}

func requiredArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

func (r *Runner) writeSongs(cmd *cli.Command, title string, songs []models.Song) error {
	if cmd.Bool("json") {
		if songs == nil {
			songs = []models.Song{}
		}
		return r.writeJSON(songs, cmd.Bool("pretty"))
	}

	if len(songs) == 0 {
		return r.writePlain("No songs found.\n")
	}

	r.writePlainHeader(title)
	for i, s := range songs {
		if err := r.writePlain("%d. %s - %s\n", i+1, s.Title, s.Artist); err != nil {
			return err
		}
		r.writePlain("   Album: %s | ID: %s", s.Album, s.ID)
		if s.Duration != "" {
			r.writePlain(" | %s", s.Duration)
		}
		r.writePlain("\n")
	}
	return nil
}
