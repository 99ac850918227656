// Package snippets generates a snippet notebook from an OpenAPI document.
//
// This file walks every operation of the document in declaration order,
// writes a section heading whenever the category (first tag) changes, and
// hands each emitted snippet to a Sink. An operation that cannot be emitted
// is logged, recorded in the Report and skipped; generation always carries
// on with the remaining operations.
package snippets

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// untaggedSection names the section of operations without tags.
const untaggedSection = "Other"

// Sink receives the ordered text and code blocks of the output document.
type Sink interface {
	AddMarkdown(text string)
	AddCode(code string)
}

// GenerateOptions controls a generation run.
// The zero value generates every operation with DefaultEmitter.
type GenerateOptions struct {
	Title   string   // Heading of the intro cell
	BaseURL string   // Default base URL offered by the setup cell
	Tags    []string // When set, only sections for these tags are generated
	Emitter *Emitter
	Metrics *Metrics
}

// SkippedOperation records an operation that could not be emitted.
type SkippedOperation struct {
	Path   string
	Method string
	Err    error
}

// Report summarizes a generation run.
type Report struct {
	Emitted  int
	Skipped  []SkippedOperation
	Sections []string // Section names in output order
}

// Summary returns a one-line description of the run.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d snippet(s) in %d section(s), %d operation(s) skipped",
		r.Emitted, len(r.Sections), len(r.Skipped))
}

// Generate appends the intro, setup and one cell per operation to sink.
func Generate(doc *Document, sink Sink, opts GenerateOptions) (*Report, error) {
	if doc == nil {
		return nil, fmt.Errorf("OpenAPI document is nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("output sink is nil")
	}
	start := time.Now()
	defer opts.Metrics.observeRun(start)

	emitter := opts.Emitter
	if emitter == nil {
		emitter = DefaultEmitter
	}
	title := opts.Title
	if title == "" {
		title = doc.Info.Title
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://cad.onshape.com"
	}

	sink.AddMarkdown(introMarkdown(title))
	sink.AddMarkdown(setupMarkdown)
	sink.AddCode(setupCode(baseURL))
	sink.AddCode(emitter.URLHelper())

	wanted := make(map[string]bool, len(opts.Tags))
	for _, t := range opts.Tags {
		wanted[t] = true
	}

	report := &Report{}
	currentTag := ""
	currentPath := ""
	includePath := true
	started := false

	for _, op := range doc.Operations {
		// The section of a path is decided by its first operation
		if !started || op.Path != currentPath {
			currentPath = op.Path
			tag := op.Tag()
			if tag == "" {
				tag = untaggedSection
			}
			includePath = len(wanted) == 0 || wanted[tag]
			if includePath && (!started || tag != currentTag) {
				currentTag = tag
				report.Sections = append(report.Sections, tag)
				sink.AddMarkdown(sectionMarkdown(len(report.Sections), tag, doc.TagDescription(tag)))
				opts.Metrics.section()
			}
			started = started || includePath
		}
		if !includePath {
			continue
		}

		snippet, err := emitter.Emit(doc, op.Path, op.Method)
		if err != nil {
			log.Printf("Warning: skipping %s %s: %v", strings.ToUpper(op.Method), op.Path, err)
			report.Skipped = append(report.Skipped, SkippedOperation{Path: op.Path, Method: op.Method, Err: err})
			opts.Metrics.skipped(err)
			continue
		}
		sink.AddCode(snippet.String())
		report.Emitted++
		opts.Metrics.emitted()
	}

	log.Printf("Summary: %s", report.Summary())
	return report, nil
}

func sectionMarkdown(index int, tag, description string) string {
	heading := fmt.Sprintf("# %d. %s\n", index, tag)
	if description != "" {
		heading += description + "\n"
	}
	return heading
}

func introMarkdown(title string) string {
	if title == "" {
		title = "REST API"
	}
	return "# " + title + `
Below is the Python version of all the REST API endpoints in the form of code snippets. Each snippet is a self-contained function documenting the parameters and the request body template of one endpoint.

Note: this Jupyter notebook is designed to be launched and used in Google Colab for the best experience.
`
}

const setupMarkdown = `# 0. Setup
**Important:** you have to run ALL cells in this section before you can properly use the rest of the code snippets. When importing snippets to your own Jupyter notebook, you have to import ALL cells in this section and run them before executing any of the snippets in this notebook.
`

// setupCode installs the client and configures it with the user's API keys,
// read from an uploaded key file or pasted in.
func setupCode(baseURL string) string {
	return `#@title Import and Setup Onshape Client
!pip install onshape-client
from onshape_client.client import Client
from onshape_client.onshape_url import OnshapeElement
import json

#@markdown Change the base if using an enterprise (i.e. "https://ptc.onshape.com")
base = ` + fmt.Sprintf("%q", baseURL) + ` #@param {type:"string"}

#@markdown Would you like to import your API keys from a file, or copy and paste them directly?
keyImportOption = "Upload Keys from File" #@param ["Upload Keys from File", "Copy/Paste Keys"]

from IPython.display import clear_output
clear_output()
print("Onshape Client successfully imported!")

if keyImportOption == "Upload Keys from File":
    # The key file defines access and secret, e.g. access = "..." and secret = "..."
    from google.colab import files
    uploaded = files.upload()
    for fn in uploaded.keys():
        exec(uploaded[fn].decode("utf-8"))
else:
    access = input("Paste your Onshape Access Key: ")
    secret = input("Paste your Onshape Secret Key: ")

client = Client(configuration={"base_url": base,
                               "access_key": access,
                               "secret_key": secret})
clear_output()
print('Onshape client configured - ready to go!')
`
}
