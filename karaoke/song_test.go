package karaoke_test

import (
	"errors"
	"testing"

	"github.com/jorgealamilla/loukai/karaoke"
)

func TestSongValidate(t *testing.T) {
	tests := []struct {
		name    string
		lines   []karaoke.LyricLine
		wantErr error
	}{
		{
			name: "disjoint lines same singer ok",
			lines: []karaoke.LyricLine{
				{SingerID: "a", StartSec: 0, EndSec: 2},
				{SingerID: "a", StartSec: 2, EndSec: 4},
			},
		},
		{
			name: "overlapping lines same singer rejected",
			lines: []karaoke.LyricLine{
				{SingerID: "a", StartSec: 0, EndSec: 3},
				{SingerID: "a", StartSec: 2, EndSec: 4},
			},
			wantErr: karaoke.ErrOverlappingLines,
		},
		{
			name: "overlapping lines different singers ok (duet)",
			lines: []karaoke.LyricLine{
				{SingerID: "a", StartSec: 0, EndSec: 3},
				{SingerID: "b", StartSec: 1, EndSec: 4},
			},
		},
		{
			name: "word beyond line end rejected",
			lines: []karaoke.LyricLine{
				{SingerID: "a", StartSec: 0, EndSec: 2, Words: []karaoke.Word{{StartSec: 0, EndSec: 3}}},
			},
			wantErr: karaoke.ErrWordOutOfLine,
		},
		{
			name: "line start after end rejected",
			lines: []karaoke.LyricLine{
				{SingerID: "a", StartSec: 5, EndSec: 1},
			},
			wantErr: karaoke.ErrWordOutOfLine,
		},
		{
			name: "lines out of chronological order for a singer rejected",
			lines: []karaoke.LyricLine{
				{SingerID: "a", StartSec: 4, EndSec: 5},
				{SingerID: "a", StartSec: 0, EndSec: 2},
			},
			wantErr: karaoke.ErrNonMonotonicTiming,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			song := &karaoke.Song{Lines: tt.lines}
			err := song.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want error wrapping %v", err, tt.wantErr)
			}
		})
	}
}
