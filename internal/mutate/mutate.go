package mutate

import (
	"context"
	"fmt"

	"clip-library/internal/library"
	"clip-library/internal/logging"
)

// ErrNotFound is returned when a mutation names a clip the library
// does not hold.
var ErrNotFound = fmt.Errorf("clip not found")

// Backend persists clip mutations. The database layer satisfies it.
type Backend interface {
	UpdateClip(ctx context.Context, id string, patch library.ClipPatch) error
	SetClipTags(ctx context.Context, id string, tagIDs []string) error
}

// Coordinator applies mutations optimistically: the in-memory snapshot
// changes first, the backend write follows, and on failure the
// captured pre-image is restored. Readers therefore see the new value
// immediately and never see a half-applied state afterwards.
type Coordinator struct {
	store   *library.Store
	backend Backend
}

// New returns a Coordinator over the given store and backend.
func New(store *library.Store, backend Backend) *Coordinator {
	return &Coordinator{store: store, backend: backend}
}

// Apply patches one clip. On backend failure the snapshot reverts to
// the pre-image and the error is returned.
func (c *Coordinator) Apply(ctx context.Context, id string, patch library.ClipPatch) error {
	prev, ok := c.store.PatchClip(id, patch)
	if !ok {
		return fmt.Errorf("updating clip %s: %w", id, ErrNotFound)
	}

	if err := c.persist(ctx, id, patch); err != nil {
		c.store.RestoreClip(prev)
		logging.Warn("update of clip %s failed, reverted: %v", id, err)
		return fmt.Errorf("updating clip %s: %w", id, err)
	}
	return nil
}

// ApplyBulk patches every id with the same patch, all or nothing. All
// clips change optimistically up front; the first backend failure
// reverts every clip in the batch, including those already persisted,
// and the error names the clip that failed.
//
// A persisted-then-reverted clip is written back by the revert path,
// so the backend converges with the snapshot either way.
func (c *Coordinator) ApplyBulk(ctx context.Context, ids []string, patch library.ClipPatch) error {
	previews := make([]library.Clip, 0, len(ids))
	for _, id := range ids {
		prev, ok := c.store.PatchClip(id, patch)
		if !ok {
			c.revert(ctx, previews, false)
			return fmt.Errorf("updating clip %s: %w", id, ErrNotFound)
		}
		previews = append(previews, prev)
	}

	for i, id := range ids {
		if err := c.persist(ctx, id, patch); err != nil {
			// Clips before i were persisted and need a backend revert
			// as well; the rest only changed in memory.
			c.revert(ctx, previews[:i], true)
			c.revert(ctx, previews[i:], false)
			logging.Warn("bulk update failed at clip %s, reverted %d clips: %v", id, len(ids), err)
			return fmt.Errorf("updating clip %s: %w", id, err)
		}
	}
	return nil
}

// SetStarred is the star toggle, the most frequent mutation.
func (c *Coordinator) SetStarred(ctx context.Context, id string, starred bool) error {
	return c.Apply(ctx, id, library.ClipPatch{Starred: &starred})
}

// SetStarredBulk stars or unstars a whole selection.
func (c *Coordinator) SetStarredBulk(ctx context.Context, ids []string, starred bool) error {
	return c.ApplyBulk(ctx, ids, library.ClipPatch{Starred: &starred})
}

// SetDescription replaces a clip's description.
func (c *Coordinator) SetDescription(ctx context.Context, id, description string) error {
	return c.Apply(ctx, id, library.ClipPatch{Description: &description})
}

// SetTags replaces a clip's tag set.
func (c *Coordinator) SetTags(ctx context.Context, id string, tagIDs []string) error {
	prev, ok := c.store.PatchClip(id, library.ClipPatch{Tags: &tagIDs})
	if !ok {
		return fmt.Errorf("tagging clip %s: %w", id, ErrNotFound)
	}
	if err := c.backend.SetClipTags(ctx, id, tagIDs); err != nil {
		c.store.RestoreClip(prev)
		logging.Warn("tagging clip %s failed, reverted: %v", id, err)
		return fmt.Errorf("tagging clip %s: %w", id, err)
	}
	return nil
}

// AddTagBulk adds one tag to every clip in the batch, all or nothing.
func (c *Coordinator) AddTagBulk(ctx context.Context, ids []string, tagID string) error {
	return c.retagBulk(ctx, ids, tagID, true)
}

// RemoveTagBulk removes one tag from every clip in the batch, all or
// nothing.
func (c *Coordinator) RemoveTagBulk(ctx context.Context, ids []string, tagID string) error {
	return c.retagBulk(ctx, ids, tagID, false)
}

// retagBulk computes a per-clip tag set (the other bulk path shares one
// patch; tags differ per clip), applies them optimistically, persists,
// and reverts the whole batch on the first failure.
func (c *Coordinator) retagBulk(ctx context.Context, ids []string, tagID string, add bool) error {
	previews := make([]library.Clip, 0, len(ids))
	patches := make([]library.ClipPatch, 0, len(ids))

	for _, id := range ids {
		clip, ok := c.store.Clip(id)
		if !ok {
			c.revert(ctx, previews, false)
			return fmt.Errorf("tagging clip %s: %w", id, ErrNotFound)
		}
		tags := retag(clip.Tags, tagID, add)
		patch := library.ClipPatch{Tags: &tags}
		prev, ok := c.store.PatchClip(id, patch)
		if !ok {
			c.revert(ctx, previews, false)
			return fmt.Errorf("tagging clip %s: %w", id, ErrNotFound)
		}
		previews = append(previews, prev)
		patches = append(patches, patch)
	}

	for i, id := range ids {
		if err := c.persist(ctx, id, patches[i]); err != nil {
			c.revert(ctx, previews[:i], true)
			c.revert(ctx, previews[i:], false)
			logging.Warn("bulk retag failed at clip %s, reverted %d clips: %v", id, len(ids), err)
			return fmt.Errorf("tagging clip %s: %w", id, err)
		}
	}
	return nil
}

// retag returns tags with tagID added or removed, never mutating the
// input slice.
func retag(tags []string, tagID string, add bool) []string {
	out := make([]string, 0, len(tags)+1)
	present := false
	for _, t := range tags {
		if t == tagID {
			present = true
			if !add {
				continue
			}
		}
		out = append(out, t)
	}
	if add && !present {
		out = append(out, tagID)
	}
	return out
}

// persist routes a patch to the backend. Tag changes go through the
// join table, everything else through the clip row.
func (c *Coordinator) persist(ctx context.Context, id string, patch library.ClipPatch) error {
	if patch.Tags != nil {
		if err := c.backend.SetClipTags(ctx, id, *patch.Tags); err != nil {
			return err
		}
	}
	row := patch
	row.Tags = nil
	if row == (library.ClipPatch{}) {
		return nil
	}
	return c.backend.UpdateClip(ctx, id, row)
}

// revert restores pre-images in memory and, when persisted is set,
// writes the old values back to the backend. A failed revert write is
// logged and skipped; the snapshot still reverts so the next scan
// reconciles.
func (c *Coordinator) revert(ctx context.Context, previews []library.Clip, persisted bool) {
	for _, prev := range previews {
		c.store.RestoreClip(prev)
		if !persisted {
			continue
		}
		patch := library.ClipPatch{
			Description: &prev.Description,
			Starred:     &prev.Starred,
			Tags:        &prev.Tags,
		}
		if err := c.persist(ctx, prev.ID, patch); err != nil {
			logging.Error("reverting clip %s in backend failed: %v", prev.ID, err)
		}
	}
}
