package extraction

import "fmt"

const bulletSystemPrompt = "You are a medical assistant that extracts medication information from discharge summaries."

const jsonSystemPrompt = "You are a medical assistant that extracts medication information from discharge summaries and returns JSON format."

func bulletPrompt(summary string) string {
	return fmt.Sprintf(`Extract medication information from this medical text. Format each medication exactly like this:

MEDICATION:
- Name: Amoxicillin
- Dosage: 500mg
- Frequency: Three times daily
- Duration: 7 days
- Instructions: Take with food

Here's the text to analyze:
%s`, summary)
}

func jsonPrompt(summary string) string {
	return fmt.Sprintf(`Extract medication information from the following discharge summary. For each medication, provide:
    1. Name of medication
    2. Dosage
    3. Frequency (be specific about timing, e.g., "three times a day", "after breakfast", "before bed")
    4. Duration (if specified)

    Format the response as a JSON array of medications. Example format:
    [
      {
        "name": "Amoxicillin",
        "dosage": "500mg",
        "frequency": "three times a day",
        "startDate": "current date",
        "endDate": "7 days from now"
      }
    ]

    Important: For frequency, use specific timing patterns like:
    - "once daily"
    - "twice daily"
    - "three times a day"
    - "four times a day"
    - "every morning"
    - "every night"
    - "every evening"
    - "before breakfast"
    - "after breakfast"
    - "before lunch"
    - "after lunch"
    - "before dinner"
    - "after dinner"

    Discharge Summary:
    %s`, summary)
}
