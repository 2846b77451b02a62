package dev

// MaxNameLength is the longest process-local device name. Longer names are
// truncated at creation and the device remembers the truncation.
const MaxNameLength = 31

// TruncateName bounds a device name to MaxNameLength. It returns the bounded
// name and whether truncation happened.
func TruncateName(name string) (string, bool) {
	if len(name) <= MaxNameLength {
		return name, false
	}

	return name[:MaxNameLength], true
}

// BuildName builds a tree path from a parent path and a device name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}
