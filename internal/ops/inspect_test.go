package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/stopka/internal/contact"
	"github.com/hpungsan/stopka/internal/errors"
	"github.com/hpungsan/stopka/internal/render"
)

func TestInspect_EndToEndNote(t *testing.T) {
	out := Inspect(annaNote)

	require.Equal(t, "Anna", out.Record.FirstName)
	require.Equal(t, "Nowak", out.Record.LastName)
	require.Equal(t, contact.Derived{
		NormalizedPhone:        "123456789",
		TransliteratedFullName: "AnnaNowak",
		LoginHandle:            "anna.nowak",
		UsesPhoto:              false,
	}, out.Derived)
	require.Equal(t, string(render.WithoutPhoto), out.Template)
	require.Equal(t, "AnnaNowak.html", out.FileName)
	require.False(t, out.Sentinel)
}

func TestInspect_ShortNote(t *testing.T) {
	out := Inspect("one\ntwo")
	require.True(t, out.Sentinel)
	require.Equal(t, contact.Sentinel, out.Record.Phone)
}

func TestShowAndList(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	list, err := List(ctx, store)
	require.NoError(t, err)
	require.Equal(t, 0, list.Count)
	require.NotNil(t, list.Keys)

	writeRecord(t, store, "1", annaNote)

	list, err = List(ctx, store)
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, list.Keys)

	out, err := Show(ctx, store, "1")
	require.NoError(t, err)
	require.Equal(t, "1", out.Record.TaskID)
	require.Equal(t, "anna.nowak", out.Derived.LoginHandle)

	_, err = Show(ctx, store, "404")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
