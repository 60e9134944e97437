package karaoke

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jorgealamilla/loukai/mux"
)

// create.go completes the create data flow SPEC_FULL.md §2/§4.10
// describes: "C14/C10 external encoder -> initial container -> C1 read ->
// C9 attach payload". mux never imports karaoke (see mux/errors.go), so
// this façade lives on this side of the boundary: it drives the encoder
// (C10) to produce the bare multi-track container, then hands the result
// to Save (C9) to attach the kaid/vpch/kons/stem karaoke payload.

// Create drives the external encoder via mux.Mux to build the initial
// container at req.OutputPath, then immediately calls Save to attach
// song's karaoke payload. req.OutputPath and song should agree on the
// same stems/metadata the caller already put into req; Create does not
// cross-check them.
func Create(ctx context.Context, logger *slog.Logger, scratch *mux.ScratchManager, req mux.MuxRequest, song *Song, onProgress func(mux.Progress)) error {
	if err := mux.Mux(ctx, logger, scratch, req, onProgress); err != nil {
		return fmt.Errorf("karaoke: creating %s: %w", req.OutputPath, err)
	}
	if err := Save(song, req.OutputPath, new(sync.Mutex)); err != nil {
		return fmt.Errorf("karaoke: attaching payload to %s after mux: %w", req.OutputPath, err)
	}
	return nil
}
