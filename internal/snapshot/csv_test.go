package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectsync/internal/models"
)

func sample() *Snapshot {
	s := New()
	s.Set("booking_2", models.Booking{
		ID:      "booking_2",
		Name:    "Ravi \"RK\" Kumar",
		Phone:   "+91 98765 43210",
		Address: "Flat 4B, Lake View\nBandra, Mumbai",
		Status:  "pending",
	})
	s.Set("booking_1", models.Booking{
		ID:             "booking_1",
		Name:           "Asha",
		Email:          "asha@example.com",
		PropertyType:   "Independent House",
		InspectionDate: "2024-03-01",
		CreatedAt:      "2024-01-02 03:04:05",
		Status:         "confirmed",
	})
	return s
}

func TestWriteLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bookings.csv")
	want := sample()

	require.NoError(t, Write(path, want))
	got, err := Load(path)
	require.NoError(t, err)

	assert.True(t, want.Equal(got))
	assert.Equal(t, want.Keys(), got.Keys())
	assert.Equal(t, want.Bookings(), got.Bookings())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestEncodeReadKeepsFetchedLineBreaks(t *testing.T) {
	want := New()
	want.Set("b1", models.FromFields(map[string]string{
		"id":      "b1",
		"address": "Flat 4B\r\nBandra\rMumbai",
	}))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, want))
	assert.Contains(t, buf.String(), "\"Flat 4B\r\nBandra\r\nMumbai\"")

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestWriteHeaderAlwaysPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings.csv")
	require.NoError(t, Write(path, New()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(models.Header, ",")+"\r\n", string(data))
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestRead(t *testing.T) {
	t.Run("EmptyInput", func(t *testing.T) {
		s, err := Read(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("BOMAndReorderedColumns", func(t *testing.T) {
		in := "\ufeffBooking ID,Status,Name\nb1,pending,Asha\nb2,confirmed\n"
		s, err := Read(strings.NewReader(in))
		require.NoError(t, err)

		b1, ok := s.Get("b1")
		require.True(t, ok)
		assert.Equal(t, "Asha", b1.Name)
		assert.Equal(t, "pending", b1.Status)

		b2, ok := s.Get("b2")
		require.True(t, ok)
		assert.Equal(t, "", b2.Name)
	})

	t.Run("DuplicateIDKeepsFirstPositionLastValue", func(t *testing.T) {
		in := "Booking ID,Name\nb1,First\nb2,Other\nb1,Second\n"
		s, err := Read(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []string{"b1", "b2"}, s.Keys())
		b1, _ := s.Get("b1")
		assert.Equal(t, "Second", b1.Name)
	})

	t.Run("NoBookingIDColumn", func(t *testing.T) {
		_, err := Read(strings.NewReader("Name,Phone\nAsha,1\n"))
		assert.ErrorIs(t, err, ErrNoBookingIDColumn)
	})

	t.Run("HeaderOnlyWithoutBookingID", func(t *testing.T) {
		s, err := Read(strings.NewReader("Name,Phone\n"))
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := Read(strings.NewReader("Booking ID,Name\nb1,\"unterminated\n"))
		assert.Error(t, err)
	})
}

func TestSnapshotOrderAndClone(t *testing.T) {
	s := New()
	s.Set("a", models.Booking{ID: "a"})
	s.Set("b", models.Booking{ID: "b"})
	s.Set("a", models.Booking{ID: "a", Status: "confirmed"})
	assert.Equal(t, []string{"a", "b"}, s.Keys())

	c := s.Clone()
	c.Set("c", models.Booking{ID: "c"})
	c.Set("a", models.Booking{ID: "a", Status: "cancelled"})
	assert.Equal(t, 2, s.Len())
	a, _ := s.Get("a")
	assert.Equal(t, "confirmed", a.Status)
	assert.False(t, s.Equal(c))

	var visited []string
	c.Range(func(id string, _ models.Booking) bool {
		visited = append(visited, id)
		return id != "b"
	})
	assert.Equal(t, []string{"a", "b"}, visited)
}
