package prompts

import (
	"errors"
	"strings"
)

const SystemPrompt = `Voce e um planejador de estudos em pt-BR que trabalha em duas etapas:
- Etapa OUTLINE: gerar apenas o esqueleto semanal/por seções do plano (sem dias, sem tarefas detalhadas). Foque em milestones, critérios de sucesso, perguntas-guia e materiais recomendados.
- Etapa DIA: quando solicitado, gere um unico dia com tarefas completas (conteudo em Markdown, flashcards com frente/verso, quizzes de multipla escolha etc.).
Sempre produza JSON estrito conforme o schema informado para cada etapa e reuse ids consistentes entre outline e dias.`

const excerptsBlock = `{{if .Excerpts}}Trechos relevantes dos materiais:
{{.Excerpts}}
{{end}}`

const outlineUser = `ETAPA: OUTLINE
Regras de formato:
- Responda apenas com JSON seguindo o schema definido para ` + "`plan`" + ` (nao existe campo ` + "`tasks`" + `).
- ids devem ser curtos e estaveis (ex.: s1, s2...).
- Cada secao representa uma semana ou macrofase com milestone claro, criterios de sucesso e perguntas-guia.
- Liste materiais recomendados com instrucoes de uso, mas nao gere nenhum dia nem tarefa detalhada.
- Use ` + "`suggested_day_count`" + ` para indicar quantos dias aquela secao deve consumir (sera usado para geracoes futuras).

Contexto do usuario:
{{.UserContext}}
Objetivo atual: {{.Goal}}
Materiais do usuario (RAG):
{{.Documents}}
` + excerptsBlock + `Gere 4-6 secoes (weeks) com milestones claros, criterios de liberacao, checkpoints e perguntas para refletir antes de liberar a proxima secao.
Pode sugerir materiais externos, mas mantenha apenas o outline; os dias recebidos pelo usuario serao gerados posteriormente sob demanda.
Respeite o tempo semanal e niveis declarados.`

const sectionTasksUser = `ETAPA: DIA/PREVIEW
Gere apenas ` + "`tasks`" + ` para a secao solicitada em JSON seguindo o schema DAY_TASK_SCHEMA.
- Inclua 3-5 tarefas variadas (quiz MCQ, flashcards com frente/verso, aulas/resumos em Markdown, praticas com passo a passo).
- Quizes devem ser multipla escolha com opcoes (label + texto) e indicar a resposta correta e explicacao.
- Flashcards precisam de ` + "`front`" + ` e ` + "`back`" + ` completos e, se possivel, ` + "`hint`" + `.
- Lesson/practice/review devem trazer ` + "`summary_markdown`" + ` e ` + "`body_markdown`" + ` com conteudo pronto para renderizacao.
- Utilize materiais do usuario quando fizer sentido e cite-os em ` + "`resources`" + `.

Secao alvo: {{if .SectionJSON}}{{.SectionJSON}}{{else}}{{.SectionID}}{{end}}
Tarefas existentes na secao: {{.SectionTasks}}
Materiais do usuario (RAG):
{{.Documents}}
` + excerptsBlock

const dayUser = `ETAPA: DIA
Gere um unico dia de estudo em JSON seguindo DAY_RESPONSE_SCHEMA.
- Preencha ` + "`day`" + ` com title/focus/target_minutes coerentes com progresso e outline.
- Liste 3-5 tasks completas; ids curtos (t1, t2...) e ` + "`section_id`" + ` igual ao da secao.
- Para lições/resumos/praticas, escreva ` + "`summary_markdown`" + ` e ` + "`body_markdown`" + ` ricos (com listas, subtitulos, exemplos).
- Flashcards DEVEM possuir frente/verso e, se possivel, dica.
- Quizzes DEVEM ser multipla escolha (choices com label A/B/C... e texto) e incluir resposta + explicacao.
- Inclua recursos externos apenas quando fizer sentido, com ` + "`how_to_use`" + ` em Markdown.
- Preserve prerequisites/dependencies quando fizer sentido e use historico do dia/secao.

Contexto do usuario:
{{.UserContext}}
Materiais do usuario (RAG):
{{.Documents}}
` + excerptsBlock + `Plano: {{.PlanTitle}}
Dia indexado: {{.DayIndex}}
{{if .SectionJSON}}Secao alvo: {{.SectionJSON}}
Metas da secao: {{.SectionMetrics}}
Criterios de liberacao: {{.ReleaseCriteria}}
Perguntas-guia: {{.FocusQuestions}}
Materiais recomendados desta secao: {{.SectionMaterials}}
{{else}}Secao alvo: {{.SectionID}}
{{end}}Dia atual: title='{{.DayTitle}}', focus='{{.DayFocus}}', target_minutes={{.DayTargetMinutes}}
Prerequisitos do dia: {{.DayPrerequisites}}
Historico recente do aluno nessa secao: {{.LastResult}}
Tarefas existentes neste dia: {{.DayTasks}}
Tarefas ja criadas na secao: {{.SectionTasks}}`

func requireUserContext(in Input) error {
	if strings.TrimSpace(in.UserContext) == "" {
		return errors.New("missing user context")
	}
	return nil
}

func requireSectionID(in Input) error {
	if strings.TrimSpace(in.SectionID) == "" && strings.TrimSpace(in.SectionJSON) == "" {
		return errors.New("missing section id")
	}
	return nil
}

func init() {
	define(PromptOutline, 1, "study_plan_outline", PlanResponseSchema, SystemPrompt, outlineUser, requireUserContext)
	define(PromptSectionTasks, 1, "study_section_tasks", TasksOnlySchema, SystemPrompt, sectionTasksUser, requireSectionID)
	define(PromptDay, 1, "study_day", DayResponseSchema, SystemPrompt, dayUser, requireUserContext)
}
