package textcheck

const (
	noClaimsSentinel = "NO_CLAIMS"

	maxEvidenceChars = 4000
	maxSourceChars   = 5000

	noClaimNotes    = "No factual claims were identified in the input text. Therefore, no verification was performed."
	noEvidenceNotes = "No evidence could be found for the identified claims. Verdict: UNVERIFIED."
)

const extractPrompt = `You are an expert fact-checker. Your goal is to identify verifiable factual claims.

RULES:
1. Ignore opinions, predictions, or subjective statements.
2. Extract only specific, checkable facts (dates, numbers, events, quotes).
3. If the text is pure opinion or vague, return "NO_CLAIMS".
4. Return the claims as a bulleted list.

TEXT:
%s`

const adjudicatePrompt = `Analyze the following claims against the provided evidence.

CLAIMS:
%s

EVIDENCE:
%s

SOURCE CONTEXT (The article being analyzed):
%s

INSTRUCTIONS:
1. For each claim, determine if it is TRUE, FALSE, or MISLEADING based on the EVIDENCE and SOURCE CONTEXT.
2. CAUTION WITH TRUSTED SOURCES: Even if a reputable source (like Times of India, NDTV) reports an event, do NOT treat it as absolute fact if it is the ONLY source.
   - If only one source reports it: Verdict should be "LIKELY TRUE" or "REPORTED BY [SOURCE]".
   - Explanation must state: "Reported by [Source], but not independently verified by others."
3. EXCEPTION: If multiple reputable regional sources confirm it, or if there is direct primary evidence (like an embedded video/tweet proving the statement), you may mark it as TRUE.
4. DIRECT EVIDENCE: Embedded X Posts are primary evidence of *what was said*, but verify the *content* of the statement independently if possible.
5. You MUST cite the Source URL for every verification decision.
6. Be strict. Do not assume facts not present in the evidence.

OUTPUT FORMAT:
- Verdict: [TRUE / LIKELY TRUE / FALSE / MISLEADING / UNVERIFIED]
- Confidence: [0-100]
- Explanation: [Reasoning with specific citations]`

const synthesizePrompt = `Based on the verification notes below, write a helpful, accessible response for a general audience.

NOTES:
%s

INSTRUCTIONS:
1. Start with a clear verdict: "Verified", "False", "Misleading", or "Unverified".
2. If Unverified, clearly state that there isn't enough reliable information yet.
3. Explain the reasoning simply, citing the sources mentioned in the notes.
4. Keep it concise (under 200 words).`
