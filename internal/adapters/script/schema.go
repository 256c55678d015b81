package script

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/donno/cake/internal/core/domain"
)

// fileSchema is the YAML shape of a build script.
type fileSchema struct {
	Vars  map[string]string `yaml:"vars"`
	Steps []stepSchema      `yaml:"steps"`
}

// stepSchema decodes one steps entry. Each entry is a single-key mapping
// whose key names the step kind:
//
//	- include: common.yaml
//	- execute:
//	    script: sub.yaml
//	    variant: {platform: linux}
//	- shell:
//	    args: [gcc, -c, src.c, -o, src.o]
//	    sources: [src.c]
//	    targets: [src.o]
//	- copy: {source: a.txt, target: b.txt}
//	- compile: {source: src.c, headers: [hdr.h], target: out.o}
//	- library: {sources: [a.o, b.o], target: lib.a}
//	- program: {sources: [a.o, lib.a], target: app}
type stepSchema struct {
	step domain.Step
}

func (s *stepSchema) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: step must be a single-key mapping", node.Line)
	}
	key := node.Content[0].Value
	body := node.Content[1]

	switch domain.StepKind(key) {
	case domain.StepInclude:
		return s.decodeInclude(body)
	case domain.StepExecute:
		return s.decodeExecute(body)
	case domain.StepShell:
		return s.decodeShell(body)
	case domain.StepCopy:
		return s.decodeCopy(body)
	case domain.StepCompile:
		return s.decodeCompile(body)
	case domain.StepLibrary, domain.StepProgram:
		return s.decodeLink(domain.StepKind(key), body)
	default:
		return fmt.Errorf("line %d: unknown step kind %q", node.Line, key)
	}
}

func (s *stepSchema) decodeInclude(body *yaml.Node) error {
	// Both "- include: common.yaml" and the mapping form are accepted.
	if body.Kind == yaml.ScalarNode {
		s.step = domain.Step{Kind: domain.StepInclude, Script: body.Value}
	} else {
		var v struct {
			Script string `yaml:"script"`
		}
		if err := body.Decode(&v); err != nil {
			return err
		}
		s.step = domain.Step{Kind: domain.StepInclude, Script: v.Script}
	}
	if s.step.Script == "" {
		return fmt.Errorf("line %d: include step needs a script path", body.Line)
	}
	return nil
}

func (s *stepSchema) decodeExecute(body *yaml.Node) error {
	var v struct {
		Script  string            `yaml:"script"`
		Variant map[string]string `yaml:"variant"`
	}
	if err := body.Decode(&v); err != nil {
		return err
	}
	if v.Script == "" {
		return fmt.Errorf("line %d: execute step needs a script path", body.Line)
	}
	criteria := make(domain.Criteria, len(v.Variant))
	for axis, value := range v.Variant {
		criteria[axis] = domain.ParseCriterion(value)
	}
	s.step = domain.Step{Kind: domain.StepExecute, Script: v.Script, Criteria: criteria}
	return nil
}

func (s *stepSchema) decodeShell(body *yaml.Node) error {
	var v struct {
		Args    []string          `yaml:"args"`
		Env     map[string]string `yaml:"env"`
		Sources []string          `yaml:"sources"`
		Targets []string          `yaml:"targets"`
	}
	if err := body.Decode(&v); err != nil {
		return err
	}
	if len(v.Args) == 0 {
		return fmt.Errorf("line %d: shell step needs args", body.Line)
	}
	s.step = domain.Step{
		Kind:    domain.StepShell,
		Args:    v.Args,
		Env:     v.Env,
		Sources: v.Sources,
		Targets: v.Targets,
	}
	return nil
}

func (s *stepSchema) decodeCopy(body *yaml.Node) error {
	var v struct {
		Source string `yaml:"source"`
		Target string `yaml:"target"`
	}
	if err := body.Decode(&v); err != nil {
		return err
	}
	if v.Source == "" || v.Target == "" {
		return fmt.Errorf("line %d: copy step needs source and target", body.Line)
	}
	s.step = domain.Step{Kind: domain.StepCopy, Source: v.Source, Target: v.Target}
	return nil
}

func (s *stepSchema) decodeCompile(body *yaml.Node) error {
	var v struct {
		Source  string   `yaml:"source"`
		Headers []string `yaml:"headers"`
		Target  string   `yaml:"target"`
	}
	if err := body.Decode(&v); err != nil {
		return err
	}
	if v.Source == "" || v.Target == "" {
		return fmt.Errorf("line %d: compile step needs source and target", body.Line)
	}
	s.step = domain.Step{
		Kind:    domain.StepCompile,
		Source:  v.Source,
		Sources: v.Headers,
		Target:  v.Target,
	}
	return nil
}

func (s *stepSchema) decodeLink(kind domain.StepKind, body *yaml.Node) error {
	var v struct {
		Sources []string `yaml:"sources"`
		Target  string   `yaml:"target"`
	}
	if err := body.Decode(&v); err != nil {
		return err
	}
	if len(v.Sources) == 0 || v.Target == "" {
		return fmt.Errorf("line %d: %s step needs sources and target", body.Line, kind)
	}
	s.step = domain.Step{Kind: kind, Sources: v.Sources, Target: v.Target}
	return nil
}
