package classifier

// TagLabels is the fixed, ordered label vector the model's output indexes
// into. The ordering is the contract between the output tensor and
// human-readable tags: never reorder or remove entries without versioning
// the model alongside.
var TagLabels = []string{
	"rating:safe",
	"rating:questionable",
	"rating:explicit",
	"nsfw",
	"explicit",
	"suggestive",
	"penis",
	"vagina",
	"breasts",
	"nipples",
	"anus",
	"butt",
	"erection",
	"genital_fluids",
	"cum",
	"oral",
	"sex",
	"masturbation",
	"bondage",
	"bdsm",
	"anthro",
	"furry",
	"feral",
	"scalie",
	"avian",
	"canine",
	"feline",
	"equine",
	"dragon",
	"wolf",
	"fox",
	"rabbit",
	"rodent",
	"shark",
	"bird",
	"human",
	"humanoid",
	"solo",
	"duo",
	"group",
	"presenting",
	"spread_legs",
	"bulge",
	"underwear",
	"nude",
	"clothed",
}

// Indexes of the two high-severity labels consulted by the early-exit check.
var (
	idxExplicit = labelIndex("explicit")
	idxNSFW     = labelIndex("nsfw")
)

func labelIndex(name string) int {
	for i, l := range TagLabels {
		if l == name {
			return i
		}
	}
	panic("unknown label: " + name)
}
