package llmexec

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/pkg/errors"

	"github.com/askiada/content-pipeline/pkg/pipeline"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

const systemPrompt = "You write marketing content for product videos. Always answer with a single JSON object."

var funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}

		return string(raw), nil
	},
}

const fallbackPrompt = `Produce the "{{.Stage}}" content for this video.
Input:
{{json .Input}}
Answer with a JSON object holding the result.`

var defaultPrompts = map[model.Stage]string{
	pipeline.StageGrounding: `Research the product presented in this transcript.
Input:
{{json .Input}}
Answer with {"grounding_keywords": [string], "grounding_questions": [string], "grounding_sources": [string]}.`,
	pipeline.StageDescription: `Write a product description grounded on this research.
Input:
{{json .Input}}
Answer with {"description": string}.`,
	pipeline.StageUSP: `List the unique selling points of the product described below.
Input:
{{json .Input}}
Answer with {"usps": [string]}.`,
	pipeline.StageFAQ: `Write a FAQ answering the questions buyers ask, using the selling points.
Input:
{{json .Input}}
Answer with {"faqs": [{"question": string, "answer": string}]}.`,
	pipeline.StageChapters: `Split the video transcript into chapters.
Input:
{{json .Input}}
Answer with {"chapters": [{"timestamp": string, "title": string}]}.`,
	pipeline.StageCaseStudies: `Write short customer case studies illustrating the selling points.
Input:
{{json .Input}}
Answer with {"case_studies": [{"title": string, "story": string}]}.`,
	pipeline.StageKeywords: `Pick search keywords matching the selling points.
Input:
{{json .Input}}
Answer with {"keywords": [string]}.`,
	pipeline.StageHashtags: `Pick social media hashtags from the selling points and keywords.
Input:
{{json .Input}}
Answer with {"hashtags": [string]}.`,
}

type promptData struct {
	Stage model.Stage
	Input map[string]any
}

func parsePrompt(stage model.Stage, text string) (*template.Template, error) {
	tpl, err := template.New(string(stage)).Funcs(funcs).Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse prompt of stage %s", stage)
	}

	return tpl, nil
}

func render(tpl *template.Template, stage model.Stage, input map[string]any) (string, error) {
	buf := &bytes.Buffer{}

	err := tpl.Execute(buf, promptData{Stage: stage, Input: input})
	if err != nil {
		return "", errors.Wrapf(err, "unable to render prompt of stage %s", stage)
	}

	return buf.String(), nil
}
