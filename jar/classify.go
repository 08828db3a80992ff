package jar

import (
	"archive/zip"
	"fmt"
	"strings"
)

// springBootMarker is the entry that distinguishes a Spring Boot fat jar
// from a standard jar.
const springBootMarker = "BOOT-INF"

// Classify determines a jar's packaging layout by inspecting its entry
// table. Presence of a BOOT-INF entry anywhere in the table means Spring
// Boot; absence means standard. Nothing else about the jar is examined
// and the jar is never modified.
func Classify(jarPath string) (Type, error) {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return TypeStandard, fmt.Errorf("%w %q: %w", ErrOpen, jarPath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == springBootMarker || strings.HasPrefix(f.Name, springBootMarker+"/") {
			return TypeSpringBoot, nil
		}
	}
	return TypeStandard, nil
}
