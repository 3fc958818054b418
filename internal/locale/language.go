package locale

import (
	"golang.org/x/text/language"
)

type ScriptClass string

const (
	ScriptGeneral  ScriptClass = "general"
	ScriptCJK      ScriptClass = "cjk"
	ScriptArabic   ScriptClass = "arabic"
	ScriptCyrillic ScriptClass = "cyrillic"
)

var rtlLanguages = map[string]struct{}{
	"ar":  {},
	"he":  {},
	"fa":  {},
	"ur":  {},
	"ps":  {},
	"sd":  {},
	"ku":  {},
	"dv":  {},
	"prs": {},
}

var languageCodes = map[string]string{
	"Albanian":      "sq",
	"Amharic":       "am",
	"Arabic":        "ar",
	"Armenian":      "hy",
	"Azerbaijani":   "az",
	"Belarusian":    "be",
	"Bengali":       "bn",
	"Bislama":       "bi",
	"Bosnian":       "bs",
	"Bulgarian":     "bg",
	"Burmese":       "my",
	"Chinese":       "zh",
	"Comorian":      "zdj",
	"Croatian":      "hr",
	"Czech":         "cs",
	"Danish":        "da",
	"Dari":          "prs",
	"Dhivehi":       "dv",
	"Dutch":         "nl",
	"Dzongkha":      "dz",
	"English":       "en",
	"Estonian":      "et",
	"Filipino":      "fil",
	"Finnish":       "fi",
	"French":        "fr",
	"Georgian":      "ka",
	"German":        "de",
	"Greek":         "el",
	"Hebrew":        "he",
	"Hindi":         "hi",
	"Hungarian":     "hu",
	"Icelandic":     "is",
	"Indonesian":    "id",
	"Italian":       "it",
	"Japanese":      "ja",
	"Kazakh":        "kk",
	"Khmer":         "km",
	"Kinyarwanda":   "rw",
	"Kirundi":       "rn",
	"Korean":        "ko",
	"Kyrgyz":        "ky",
	"Lao":           "lo",
	"Latvian":       "lv",
	"Lithuanian":    "lt",
	"Luxembourgish": "lb",
	"Macedonian":    "mk",
	"Malagasy":      "mg",
	"Malay":         "ms",
	"Maltese":       "mt",
	"Marshallese":   "mh",
	"Mongolian":     "mn",
	"Montenegrin":   "cnr",
	"Nauruan":       "na",
	"Nepali":        "ne",
	"Norwegian":     "no",
	"Palauan":       "pau",
	"Persian":       "fa",
	"Polish":        "pl",
	"Portuguese":    "pt",
	"Romanian":      "ro",
	"Russian":       "ru",
	"Samoan":        "sm",
	"Serbian":       "sr",
	"Sesotho":       "st",
	"Sinhala":       "si",
	"Slovak":        "sk",
	"Slovenian":     "sl",
	"Somali":        "so",
	"Spanish":       "es",
	"Swahili":       "sw",
	"Swati":         "ss",
	"Swedish":       "sv",
	"Tajik":         "tg",
	"Tetum":         "tet",
	"Thai":          "th",
	"Tigrinya":      "ti",
	"Tongan":        "to",
	"Turkish":       "tr",
	"Turkmen":       "tk",
	"Tuvaluan":      "tvl",
	"Ukrainian":     "uk",
	"Urdu":          "ur",
	"Uzbek":         "uz",
	"Vietnamese":    "vi",
}

// LanguageCode returns the BCP 47 code for a language name, "und" if unknown.
func LanguageCode(name string) string {
	if code, ok := languageCodes[name]; ok {
		return code
	}
	return "und"
}

func IsRTL(code string) bool {
	_, ok := rtlLanguages[code]
	return ok
}

// ScriptClassOf groups a language by the writing system its likely script
// belongs to, which decides the font family used on the creative.
func ScriptClassOf(code string) ScriptClass {
	tag, err := language.Parse(code)
	if err != nil {
		return ScriptGeneral
	}
	script, _ := tag.Script()

	switch script.String() {
	case "Jpan", "Hans", "Hant", "Hani", "Hira", "Kana", "Kore", "Hang":
		return ScriptCJK
	case "Arab", "Hebr":
		return ScriptArabic
	case "Cyrl", "Geor", "Armn":
		return ScriptCyrillic
	default:
		return ScriptGeneral
	}
}
