package imagecheck

const maxOCRChars = 1000

const undecodableReport = "The file could not be read as an image, so it was not analyzed."

const fusionPrompt = `Analyze the following forensic data for an image to determine if it is AI-generated, manipulated, or authentic.

1. OCR TEXT (Content):
"%s"

2. METADATA ANALYSIS:
- Software: %s
- AI Keywords Found: %t
- Edited Keywords Found: %t

3. FORENSIC ANALYSIS:
- ELA Score (0-100, >50 suggests manipulation): %.2f
- Max Difference: %d
- GAN Artifact Score (0-100, >70 suggests AI): %.2f
- Spectral Mean: %.2f
- Spectral Std Dev: %.2f

INSTRUCTIONS:
- Determine the VERDICT: [REAL / FAKE / MANIPULATED / UNKNOWN]
- FAKE = Clear AI generation signatures OR High GAN Artifact Score (>70) with abnormal spectral variance.
- MANIPULATED = High ELA score or editing software (e.g. "Photoshop") in metadata.
- REAL = No signs of tampering.
- UNKNOWN = Insufficient or contradictory data.

- Provide a CONFIDENCE SCORE (0-100).
- Write a short REPORT explaining the findings in SIMPLE, LAYMAN TERMS.
  - STRICTLY FORBIDDEN: Do not use words like "ELA", "GAN", "Spectral Variance", "Error Level Analysis", "Frequency Spectrum".
  - Instead of "High ELA Score", say "Inconsistencies in the image quality suggest editing."
  - Instead of "High GAN Score", say "The image contains patterns typical of AI generation."
  - Focus on *what* the user needs to know: Is it real? Is it fake? Why?
  - Keep it under 3 sentences.

OUTPUT FORMAT:
Verdict: [VERDICT]
Confidence: [SCORE]
Report: [Simple Explanation]`
