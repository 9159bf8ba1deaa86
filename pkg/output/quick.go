package output

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var fillerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(based on|according to) (the|your) (data|information|context)( (provided|available|above))?[,:]?\s*`),
	regexp.MustCompile(`(?i)\bas you can see[,:]?\s*`),
	regexp.MustCompile(`(?i)\blooking at (the|your) (data|information)[,:]?\s*`),
	regexp.MustCompile(`(?i)\bhere is (a|the|your) (summary|overview|breakdown)( of [^:\n]*)?:\s*`),
	regexp.MustCompile(`(?i)\bi hope (this|that) helps[.!]?\s*`),
	regexp.MustCompile(`(?i)\blet me know if you (need|have|want) [^.!?\n]*[.!?]?\s*`),
	regexp.MustCompile(`(?i)dựa (trên|vào) (dữ liệu|thông tin)( được cung cấp| của bạn)?[,:]?\s*`),
	regexp.MustCompile(`(?i)như bạn có thể thấy[,:]?\s*`),
	regexp.MustCompile(`(?i)hy vọng (điều này|thông tin này) (giúp ích|hữu ích)( cho bạn)?[.!]?\s*`),
	regexp.MustCompile(`(?i)nếu bạn cần (thêm )?(gì|thông tin|hỗ trợ)[^.!?\n]*[.!?]?\s*`),
}

var (
	blankLines      = regexp.MustCompile(`\n[ \t]*\n([ \t]*\n)+`)
	trailingSpaces  = regexp.MustCompile(`[ \t]+\n`)
	repeatedSpacing = regexp.MustCompile(`[ \t]{2,}`)
)

// QuickFormat removes filler phrases and collapses blank lines. If nothing
// remains, the trimmed input is returned.
func QuickFormat(raw string) string {
	out := raw
	for _, re := range fillerPatterns {
		out = re.ReplaceAllString(out, "")
	}

	out = trailingSpaces.ReplaceAllString(out, "\n")
	out = blankLines.ReplaceAllString(out, "\n\n")
	out = repeatedSpacing.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)

	if out == "" {
		return strings.TrimSpace(raw)
	}
	return capitalizeFirst(out)
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
