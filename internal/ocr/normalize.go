package ocr

import "regexp"

// lines made only of underscores or dashes are table rulings, not text
var reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)
