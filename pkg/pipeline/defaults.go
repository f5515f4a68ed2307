package pipeline

import "github.com/askiada/content-pipeline/pkg/pipeline/model"

// Stages of the marketing content pipeline.
const (
	StageGrounding   model.Stage = "grounding"
	StageDescription model.Stage = "description"
	StageUSP         model.Stage = "usp"
	StageFAQ         model.Stage = "faq"
	StageChapters    model.Stage = "chapters"
	StageCaseStudies model.Stage = "case_studies"
	StageKeywords    model.Stage = "keywords"
	StageHashtags    model.Stage = "hashtags"
)

func mapping(origin model.Stage, output, input string) model.FieldMapping {
	return model.FieldMapping{Origin: origin, OutputField: output, Input: model.ParseInputPath(input)}
}

// DefaultStageConfigs returns the dependency declarations of the marketing content pipeline.
//
// grounding feeds the description, which feeds the USPs. FAQ, case studies and keywords all build on the USPs,
// and hashtags need both USPs and keywords. Chapters only need the transcript.
func DefaultStageConfigs() []model.StageDependencyConfig {
	return []model.StageDependencyConfig{
		{
			Stage: StageGrounding,
			Label: "Grounding",
		},
		{
			Stage:          StageDescription,
			Label:          "Description",
			DependsOn:      []model.Stage{StageGrounding},
			RequiredFields: []string{"groundingData"},
			FieldMapping: []model.FieldMapping{
				mapping(StageGrounding, "grounding_keywords", "groundingData.keywords"),
				mapping(StageGrounding, "grounding_questions", "groundingData.questions"),
				mapping(StageGrounding, "grounding_sources", "groundingData.sources"),
			},
		},
		{
			Stage:          StageUSP,
			Label:          "USP",
			DependsOn:      []model.Stage{StageDescription},
			RequiredFields: []string{"description"},
			FieldMapping: []model.FieldMapping{
				mapping(StageDescription, "description", "description"),
			},
		},
		{
			Stage:          StageFAQ,
			Label:          "FAQ",
			DependsOn:      []model.Stage{StageUSP, StageGrounding},
			RequiredFields: []string{"usps", "groundingData"},
			FieldMapping: []model.FieldMapping{
				mapping(StageUSP, "usps", "usps"),
				mapping(StageGrounding, "grounding_questions", "groundingData.questions"),
			},
		},
		{
			Stage: StageChapters,
			Label: "Chapters",
		},
		{
			Stage:          StageCaseStudies,
			Label:          "Case Studies",
			DependsOn:      []model.Stage{StageUSP},
			RequiredFields: []string{"usps"},
			FieldMapping: []model.FieldMapping{
				mapping(StageUSP, "usps", "usps"),
			},
		},
		{
			Stage:          StageKeywords,
			Label:          "Keywords",
			DependsOn:      []model.Stage{StageUSP},
			RequiredFields: []string{"usps"},
			FieldMapping: []model.FieldMapping{
				mapping(StageUSP, "usps", "usps"),
			},
		},
		{
			Stage:          StageHashtags,
			Label:          "Hashtags",
			DependsOn:      []model.Stage{StageUSP, StageKeywords},
			RequiredFields: []string{"usps", "keywords"},
			FieldMapping: []model.FieldMapping{
				mapping(StageUSP, "usps", "usps"),
				mapping(StageKeywords, "keywords", "keywords"),
			},
		},
	}
}

// DefaultRegistry returns the registry of the marketing content pipeline, with chapters as optional stage.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultStageConfigs(), WithOptionalStage(StageChapters))
	if err != nil {
		panic(err)
	}

	return reg
}
