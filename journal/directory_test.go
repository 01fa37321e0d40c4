package journal

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "Phone Number/Email,Name\n+15551234567,Alice\n\"(555) 765-4321\",\"Bob\"\nCarol@Example.com,Carol\n\n,Missing Contact\n+15550001111,\n"

func TestDirectory_LoadCSV(t *testing.T) {
	t.Parallel()

	d := NewDirectory(nil)
	require.NoError(t, d.LoadCSV(sampleCSV))

	name, ok := d.Lookup("+15551234567")
	require.True(t, ok)
	assert.Equal(t, "Alice", name)

	name, ok = d.Lookup("555-765-4321")
	require.True(t, ok)
	assert.Equal(t, "Bob", name)

	name, ok = d.Lookup("carol@EXAMPLE.com")
	require.True(t, ok)
	assert.Equal(t, "Carol", name)

	_, ok = d.Lookup("+15550001111")
	assert.False(t, ok, "row without a name is skipped")

	_, ok = d.Lookup("+19998887777")
	assert.False(t, ok)
}

func TestDirectory_EveryNormalizedKeyResolves(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"+15551234567", "5551234567", "(408) 476-6548", "+447946095800"} {
		d := NewDirectory(nil)
		require.NoError(t, d.LoadCSV("contact,name\n"+p+",Someone\n"))
		for _, key := range NormalizePhone(p) {
			name, ok := d.Lookup(key)
			assert.True(t, ok, "registered %q, lookup key %q", p, key)
			assert.Equal(t, "Someone", name)
		}
	}
}

func TestDirectory_LoadCSV_InvalidHeader(t *testing.T) {
	t.Parallel()

	d := NewDirectory(nil)
	require.NoError(t, d.LoadCSV(sampleCSV))

	err := d.LoadCSV("just-one-column\n+15551234567\n")
	require.ErrorIs(t, err, ErrInvalidCSV)

	phones, emails := d.Len()
	assert.Zero(t, phones)
	assert.Zero(t, emails)
}

func TestDirectory_ReloadReplaces(t *testing.T) {
	t.Parallel()

	d := NewDirectory(nil)
	require.NoError(t, d.LoadCSV(sampleCSV))
	require.NoError(t, d.LoadCSV("contact,name\n+15559990000,Dana\n"))

	_, ok := d.Lookup("+15551234567")
	assert.False(t, ok, "previous contacts are cleared on reload")
	name, ok := d.Lookup("5559990000")
	require.True(t, ok)
	assert.Equal(t, "Dana", name)
}

func TestDirectory_LastWriteWins(t *testing.T) {
	t.Parallel()

	d := NewDirectory(nil)
	require.NoError(t, d.LoadCSV("contact,name\n+15551234567,Alice\n5551234567,Alicia\n"))
	name, ok := d.Lookup("+15551234567")
	require.True(t, ok)
	assert.Equal(t, "Alicia", name)
}

func TestDirectory_LoadVCF(t *testing.T) {
	t.Parallel()

	vcf := `BEGIN:VCARD
VERSION:3.0
FN:Alice Smith
TEL;type=CELL;type=VOICE;type=pref:+1 (555) 123-4567
EMAIL;type=INTERNET;type=HOME:Alice@Example.com
END:VCARD
BEGIN:VCARD
VERSION:3.0
FN:Smith, Bob
TEL;type=CELL:15557654321
END:VCARD
BEGIN:VCARD
VERSION:3.0
TEL;type=CELL:+15550000000
END:VCARD
`
	d := NewDirectory(nil)
	require.NoError(t, d.LoadVCF(vcf))

	name, ok := d.Lookup("5551234567")
	require.True(t, ok)
	assert.Equal(t, "Alice Smith", name)

	name, ok = d.Lookup("alice@example.com")
	require.True(t, ok)
	assert.Equal(t, "Alice Smith", name)

	name, ok = d.Lookup("+15557654321")
	require.True(t, ok)
	assert.Equal(t, "Smith, Bob", name, "names with commas survive")

	_, ok = d.Lookup("+15550000000")
	assert.False(t, ok, "card without FN is skipped")
}

func TestDirectory_LoadVCF_NoCards(t *testing.T) {
	t.Parallel()

	d := NewDirectory(nil)
	err := d.LoadVCF("this is not a vcard file")
	require.ErrorIs(t, err, ErrInvalidVCF)
}

func TestDirectory_LoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "contacts.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))

	d := NewDirectory(nil)
	require.NoError(t, d.LoadFile(csvPath))
	_, ok := d.Lookup("+15551234567")
	assert.True(t, ok)

	txtPath := filepath.Join(dir, "contacts.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte(sampleCSV), 0o644))
	err := d.LoadFile(txtPath)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat), "err=%v", err)

	err = d.LoadFile(filepath.Join(dir, "missing.vcf"))
	assert.Error(t, err)
}

func TestDirectory_ConcurrentReload(t *testing.T) {
	t.Parallel()

	d := NewDirectory(nil)
	require.NoError(t, d.LoadCSV("contact,name\n+15551234567,Alice\n"))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				name, ok := d.Lookup("5551234567")
				if ok && name != "Alice" && name != "Alicia" {
					t.Errorf("unexpected name %q", name)
					return
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		name := "Alice"
		if i%2 == 1 {
			name = "Alicia"
		}
		require.NoError(t, d.LoadCSV("contact,name\n+15551234567,"+name+"\n"))
	}
	close(stop)
	wg.Wait()
}
