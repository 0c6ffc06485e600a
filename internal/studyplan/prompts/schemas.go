package prompts

func objectSchema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		req := make([]any, 0, len(required))
		for _, r := range required {
			req = append(req, r)
		}
		s["required"] = req
	}
	return s
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func StringSchema() map[string]any { return map[string]any{"type": "string"} }

func IntSchema() map[string]any { return map[string]any{"type": "integer"} }

func BoolSchema() map[string]any { return map[string]any{"type": "boolean"} }

func StringArraySchema() map[string]any { return arrayOf(StringSchema()) }

func EnumSchema(values ...string) map[string]any {
	arr := make([]any, 0, len(values))
	for _, v := range values {
		arr = append(arr, v)
	}
	return map[string]any{"type": "string", "enum": arr}
}

// RawTaskTypes is the closed set of task types the model may emit.
var RawTaskTypes = []string{"flashcards", "quiz", "lecture", "summary", "project", "external_resource", "practice", "review"}

func sectionSchema() map[string]any {
	material := objectSchema(map[string]any{
		"title": StringSchema(),
		"type":  StringSchema(),
		"url":   StringSchema(),
		"notes": StringSchema(),
	}, "title")
	return objectSchema(map[string]any{
		"id":                    StringSchema(),
		"title":                 StringSchema(),
		"theme":                 StringSchema(),
		"milestone":             StringSchema(),
		"success_metrics":       StringArraySchema(),
		"release_criteria":      StringArraySchema(),
		"focus_questions":       StringArraySchema(),
		"recommended_materials": arrayOf(material),
		"suggested_day_count":   IntSchema(),
		"prerequisites":         StringArraySchema(),
		"checkpoint_prompt":     StringSchema(),
	}, "id", "title", "milestone")
}

// PlanResponseSchema constrains the outline stage.
func PlanResponseSchema() map[string]any {
	plan := objectSchema(map[string]any{
		"sections":          arrayOf(sectionSchema()),
		"global_guidelines": StringArraySchema(),
	}, "sections")
	return objectSchema(map[string]any{"plan": plan}, "plan")
}

// DayTaskSchema describes one generated task with its content body.
func DayTaskSchema() map[string]any {
	card := objectSchema(map[string]any{
		"front": StringSchema(),
		"back":  StringSchema(),
		"hint":  StringSchema(),
	}, "front", "back")
	choice := objectSchema(map[string]any{
		"label": StringSchema(),
		"text":  StringSchema(),
	}, "label", "text")
	choices := arrayOf(choice)
	choices["minItems"] = 2
	item := objectSchema(map[string]any{
		"type":        EnumSchema("mcq", "tf"),
		"question":    StringSchema(),
		"choices":     choices,
		"answer":      StringSchema(),
		"explanation": StringSchema(),
	}, "type", "question", "choices", "answer")
	resource := objectSchema(map[string]any{
		"title":                   StringSchema(),
		"url":                     StringSchema(),
		"how_to_use":              StringSchema(),
		"fallback_if_unavailable": StringSchema(),
	}, "title")
	content := objectSchema(map[string]any{
		"summary_markdown": StringSchema(),
		"body_markdown":    StringSchema(),
		"takeaways":        StringArraySchema(),
		"cards":            arrayOf(card),
		"items":            arrayOf(item),
		"resources":        arrayOf(resource),
	})
	return objectSchema(map[string]any{
		"id":                StringSchema(),
		"section_id":        StringSchema(),
		"type":              EnumSchema(RawTaskTypes...),
		"title":             StringSchema(),
		"description":       StringSchema(),
		"estimated_time":    IntSchema(),
		"difficulty":        IntSchema(),
		"suggested_order":   IntSchema(),
		"research_needed":   BoolSchema(),
		"prerequisites":     StringArraySchema(),
		"dependencies":      StringArraySchema(),
		"assessment_target": StringSchema(),
		"content":           content,
	}, "id", "section_id", "type", "title")
}

// TasksOnlySchema constrains the section-tasks stage.
func TasksOnlySchema() map[string]any {
	return objectSchema(map[string]any{"tasks": arrayOf(DayTaskSchema())}, "tasks")
}

// DayResponseSchema constrains the day stage: day fields plus its tasks.
func DayResponseSchema() map[string]any {
	meta := objectSchema(map[string]any{
		"prerequisites": StringArraySchema(),
		"notes":         StringSchema(),
	})
	day := objectSchema(map[string]any{
		"title":          StringSchema(),
		"focus":          StringSchema(),
		"target_minutes": IntSchema(),
		"summary":        StringSchema(),
		"metadata":       meta,
	})
	return objectSchema(map[string]any{
		"day":   day,
		"tasks": arrayOf(DayTaskSchema()),
	}, "day", "tasks")
}
