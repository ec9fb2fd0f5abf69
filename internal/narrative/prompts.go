package narrative

import (
	"fmt"
	"strings"
)

const consequenceSystemPrompt = `You are an expert storyteller and narrator for an interactive medieval fantasy gamebook.
Your task is to continue the story of %s in a compelling and engaging manner.
Craft your narratives to be vivid yet concise.`

const consequenceUserPrompt = `Based on the following story so far:
'%s'
The protagonist decided the following:
'%s'
Please write ONE SENTENCE about the direct consequences of this action on the story.`

const sceneSystemPrompt = `You are an expert storyteller and narrator for an interactive medieval fantasy gamebook.
Your task is to continue the story of %s in a compelling and engaging manner.
Each scene you create will be turned into an NFT, representing a crucial decision point in the journey.
Craft your narratives to be vivid yet concise, always ending with a cliffhanger that presents three distinct choices for the protagonist.`

const sceneUserPrompt = `Based on the following story so far:
'%s'

Generate a JSON object for the next scene of the adventure. Follow these guidelines:

1. The "story_continues" should be a brief, engaging scene (50-100 words) focused on the protagonist but narrated in third person. End with a cliffhanger that leads to three choices.
2. The "scene_name" should be a short, catchy title for this part of the story (3-5 words).
3. Provide three distinct choices, each reflecting a different approach (6 words maximum):
   - "logical_choice": A rational, well-thought-out option.
   - "prudent_choice": A careful, risk-averse option.
   - "reckless_choice": A bold, potentially dangerous option.

Return only the JSON object without any additional comments or text. Use the following structure:

{
    "story_continues": "",
    "scene_name": "",
    "logical_choice": "",
    "prudent_choice": "",
    "reckless_choice": ""
}

Ensure your response is a valid JSON object that can be parsed without errors.`

func consequencePrompts(protagonist, priorText, choice string) (string, string) {
	return fmt.Sprintf(consequenceSystemPrompt, protagonist),
		fmt.Sprintf(consequenceUserPrompt, strings.TrimSpace(priorText), strings.TrimSpace(choice))
}

func scenePrompts(protagonist, storySoFar string) (string, string) {
	return fmt.Sprintf(sceneSystemPrompt, protagonist),
		fmt.Sprintf(sceneUserPrompt, strings.TrimSpace(storySoFar))
}
