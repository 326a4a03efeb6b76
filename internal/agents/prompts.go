package agents

import (
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/sections"
)

// task describes how one kind of agent reads the paper.
type task struct {
	system   string
	body     string
	sections []sections.Name
	maxChars int
	tables   bool
}

const jsonOnly = "Return only valid JSON. No markdown, no explanation."

const sharedRules = `RULES:
- Use ONLY information explicitly stated in the text. Do not infer.
- If a value is not explicitly stated, use null.
- Keep numbers numeric, not strings.
- Every record needs an evidence snippet copied verbatim from the paper text.
- Return STRICT JSON only.`

var tasks = map[record.Kind]task{
	record.Microstructure: {
		system: jsonOnly,
		body: `You are a materials science data extraction agent.

TASK:
Extract MICROSTRUCTURE information for each alloy mentioned in the paper.

Focus on:
- Average grain size (μm)
- Recrystallized or not
- Grain morphology (equi-axed, elongated, etc.)
- Texture description (strong basal texture, weak texture, etc.)
- Differences between rolled sheet and extruded material

` + sharedRules + `

OUTPUT JSON SCHEMA:
{
  "microstructures": [
    {
      "alloy": "AZ31",
      "material_form": "rolled sheet",
      "avg_grain_size_um": 15,
      "recrystallized": true,
      "grain_morphology": "equi-axed",
      "texture": "strong basal texture",
      "evidence": {"snippet": "The sheets reveal a fully recrystallized microstructure with an average grain size of 15 μm."}
    }
  ]
}`,
		sections: []sections.Name{sections.Methods, sections.Introduction, sections.Results},
		maxChars: 6000,
	},
	record.Processing: {
		system: jsonOnly,
		body: `You are a materials data extraction assistant.

TASK:
Extract MATERIAL PROCESSING information from the paper.

Focus on:
- Product form: rolled sheet / extruded profile
- Condition: annealed condition, O-temper
- Heat treatment conditions: temperature (°C), time (h)
- Extrusion temperature
- Any casting or homogenization steps
- Thickness (mm) if present

` + sharedRules + `

OUTPUT JSON SCHEMA:
{
  "processing_routes": [
    {
      "material_form": "rolled sheet",
      "condition": "O-temper",
      "thickness_mm": 2,
      "steps": [
        {"step": "annealed", "temperature_C": null, "time_h": null}
      ],
      "evidence": {"snippet": "The alloys are used as sheets in an annealed condition (O-temper) with a thickness of 2 mm."}
    }
  ]
}`,
		sections: []sections.Name{sections.Introduction, sections.Methods},
		maxChars: 4500,
	},
	record.Mechanical: {
		system: jsonOnly,
		body: `You are a materials data extraction assistant.

TASK:
Extract mechanical properties for each alloy and variant.

You are given:
1) Table records (ground truth, highest priority)
2) Results text (secondary source for evidence snippets)

` + sharedRules + `
- Use the table values as the ground truth.
- Normalize variant capitalization, e.g. Sheet-RD, Sheet-TD, Extrusion-ED, Extrusion-TD.

OUTPUT JSON SCHEMA:
{
  "records": [
    {
      "alloy": "AZ31",
      "variant": "Sheet-RD",
      "properties": {
        "avg_grain_size_um": 15,
        "TYS_MPa": 170,
        "CYS_MPa": 72,
        "SD": 2.36,
        "UTS_MPa": 254,
        "fracture_strain_pct": 22.2
      },
      "evidence": {"source": "Table 1", "snippet": "Table 1 Mechanical properties of the rolled sheets and extrudates"}
    }
  ]
}`,
		sections: []sections.Name{sections.Results},
		maxChars: 3500,
		tables:   true,
	},
	record.Composition: {
		system: jsonOnly,
		body: `You are a materials information extraction assistant.

TASK:
Extract alloy compositions mentioned in the paper, such as
AZ31 = Mg + 3%Al + 1%Zn.

` + sharedRules + `
- Use wt% or at% only if explicitly stated; otherwise keep unit as "percent".
- Use element symbols: Mg, Al, Zn, Ce.
- Parse forms like "Mg+3 %Al+1 %Zn".

OUTPUT JSON SCHEMA:
{
  "alloys": [
    {
      "alloy_name": "AZ31",
      "composition": [
        {"element": "Mg", "percent": null},
        {"element": "Al", "percent": 3},
        {"element": "Zn", "percent": 1}
      ],
      "evidence": {"snippet": "AZ31 (Mg+3 %Al+1 %Zn)"}
    }
  ]
}`,
		sections: []sections.Name{sections.Abstract, sections.Introduction, sections.Methods},
		maxChars: 8000,
	},
}
