package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// SegmentsDocument is a small valid segment document: one segment and one
// target linked to it.
const SegmentsDocument = `<?xml version="1.0" encoding="UTF-8"?>
<root>
	<segments>
		<segment>
			<id>K-turn</id>
			<sequence_5prime>CGUGAU</sequence_5prime>
			<bonds>xxx...</bonds>
			<sequence_3prime>UGA</sequence_3prime>
			<energy>-6.0</energy>
		</segment>
	</segments>
	<rnas>
		<rna>
			<title>SNORD13</title>
			<sequence>GCUCUGACCGAAAGGCGUGAUGAGC</sequence>
			<structures>
				<structure>
					<associated_segments>
						<link>K-turn</link>
					</associated_segments>
				</structure>
			</structures>
		</rna>
	</rnas>
</root>
`

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
