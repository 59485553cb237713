package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// FakeOracle describes a scripted segmentation-fold. Below Threshold the
// script pairs the first and last base; at or above it the structure is
// unpaired. A probe whose sequence equals FailSequence writes to stderr.
type FakeOracle struct {
	Threshold    float64
	FailSequence string
	// Version defaults to a 1.7.0 release build.
	Version string
}

const fakeOracleScript = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "%s"
	exit 0
fi
seq=""
xml=""
while [ $# -gt 0 ]; do
	case "$1" in
	-s) seq="$2"; shift 2 ;;
	-x) xml="$2"; shift 2 ;;
	*) shift ;;
	esac
done
if [ "$seq" = "%s" ]; then
	echo "fold exploded" >&2
	exit 1
fi
energy=$(sed -n 's:.*<energy>\(.*\)</energy>.*:\1:p' "$xml")
len=${#seq}
structure=$(awk -v e="$energy" -v t="%s" -v n="$len" 'BEGIN {
	p = (e + 0 < t + 0)
	s = ""
	for (i = 1; i <= n; i++) {
		c = "."
		if (p && i == 1) c = "("
		if (p && i == n) c = ")"
		s = s c
	}
	print s
}')
echo ">Sequence length: ${len}bp, dE: -1.5 kcal/mole, segments: 1"
echo "$seq"
echo "$structure"
`

// WriteFakeOracle writes the scripted oracle into dir and returns its path.
func WriteFakeOracle(t testing.TB, dir string, fake FakeOracle) string {
	t.Helper()

	version := fake.Version
	if version == "" {
		version = "segmentation-fold 1.7.0-3f2a9c1 (release)"
	}
	fail := fake.FailSequence
	if fail == "" {
		fail = "__never__"
	}
	script := fmt.Sprintf(fakeOracleScript, version, fail, strconv.FormatFloat(fake.Threshold, 'f', -1, 64))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, "segmentation-fold")
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake oracle: %v", err)
	}
	return target
}
