package container

// SectionSpec names one section id within a profile.
type SectionSpec struct {
	ID   uint32
	Name string

	// RowWidth is the width a producer must declare. 0 means the profile
	// does not constrain it.
	RowWidth uint32
}

// Profile is a named interpretation of section ids over the shared layout.
type Profile struct {
	Name     string
	Magic    uint32
	Version  uint32
	Sections []SectionSpec
}

// Spec returns the profile's entry for a section id.
func (p Profile) Spec(id uint32) (SectionSpec, bool) {
	for _, s := range p.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return SectionSpec{}, false
}

// Artifact profile section ids.
const (
	ArtifactCode          uint32 = 1
	ArtifactSlot          uint32 = 2
	ArtifactSourcePreview uint32 = 3
	ArtifactSymbolHash    uint32 = 4
	ArtifactMeta          uint32 = 5
	ArtifactCodeInfo      uint32 = 8
)

// Schema profile section ids.
const (
	SchemaOps        uint32 = 1
	SchemaSignatures uint32 = 2
	SchemaMeta       uint32 = 3
)

// ArtifactProfile describes per-file source packets ("A2A1").
var ArtifactProfile = Profile{
	Name:    "artifact",
	Magic:   0x41324131,
	Version: 2,
	Sections: []SectionSpec{
		{ID: ArtifactCode, Name: "CODE", RowWidth: 6},
		{ID: ArtifactSlot, Name: "SLOT", RowWidth: 4},
		{ID: ArtifactSourcePreview, Name: "SOURCE_PREVIEW", RowWidth: 1},
		{ID: ArtifactSymbolHash, Name: "SYMBOL_HASH", RowWidth: 1},
		{ID: ArtifactMeta, Name: "META", RowWidth: 4},
		{ID: ArtifactCodeInfo, Name: "CODE_INFO"},
	},
}

// SchemaProfile describes the operation schema packet ("D2B1").
var SchemaProfile = Profile{
	Name:    "schema",
	Magic:   0x44324231,
	Version: 1,
	Sections: []SectionSpec{
		{ID: SchemaOps, Name: "OPS", RowWidth: 6},
		{ID: SchemaSignatures, Name: "SIGNATURES", RowWidth: 4},
		{ID: SchemaMeta, Name: "META", RowWidth: 4},
	},
}

// ProfileByName resolves "artifact" or "schema".
func ProfileByName(name string) (Profile, bool) {
	switch name {
	case ArtifactProfile.Name:
		return ArtifactProfile, true
	case SchemaProfile.Name:
		return SchemaProfile, true
	}
	return Profile{}, false
}
