package usecases

// Prompt constants for the triage pipeline and the periodic analyzers. Every
// system prompt demands JSON-only output so the tolerant extractor has a fair
// chance even when the model wraps the payload in prose or fences.

const sentimentSystemPrompt = `You are a sentiment analyst for a personal-injury law firm's client care team. You read one client text message and classify its emotional state.

Always respond with valid JSON. Do not include any text outside the JSON object.`

// sentimentUserPrompt interpolates the client context block and the message.
const sentimentUserPrompt = `Client context:
%s

Client message:
---
%s
---

Classify the message. Fields:
- "sentiment": exactly one of "positive", "neutral", "negative"
- "confidence": 0.0-1.0
- "emotional_indicators": short phrases from the message that signal emotion
- "keywords": notable words driving the classification
- "intensity": 0.0-1.0, how strongly the emotion is expressed
- "concerns": concerns the client raises, empty array if none
- "pain_indicators": mentions of physical pain or symptoms
- "satisfaction_level": one of "satisfied", "unsatisfied", "unknown"

Respond with JSON only:
{"sentiment":"...","confidence":0.0,"emotional_indicators":[...],"keywords":[...],"intensity":0.0,"concerns":[...],"pain_indicators":[...],"satisfaction_level":"..."}`

const concernSystemPrompt = `You assess how concerning a client message is for a personal-injury law firm. Concerning means: the client may be losing trust, considering another firm, in distress, or raising an issue that needs staff attention.

Always respond with valid JSON. Do not include any text outside the JSON object.`

const concernUserPrompt = `Client context:
%s

Client message:
---
%s
---

Sentiment reading: %s (confidence %.2f)

Rate the concern level. Fields:
- "concern_level": exactly one of "low", "medium", "high"
- "confidence": 0.0-1.0
- "drivers": short phrases explaining what drives the level, empty array if none

Respond with JSON only:
{"concern_level":"...","confidence":0.0,"drivers":[...]}`

const flagSystemPrompt = `You decide whether a client message must be flagged for immediate human attention at a personal-injury law firm. Flag when: the client threatens to leave, mentions another lawyer, expresses anger at the firm, describes worsening injuries, raises a deadline, or anything a case manager should see today.

Always respond with valid JSON. Do not include any text outside the JSON object.`

const flagUserPrompt = `Client context:
%s

Client message:
---
%s
---

Sentiment: %s, concern level: %s

Decide. Fields:
- "should_flag": true or false
- "confidence": 0.0-1.0
- "reasoning": one sentence

Respond with JSON only:
{"should_flag":false,"confidence":0.0,"reasoning":"..."}`

const respondSystemPrompt = `You decide whether an automated assistant should send a reply to a client message on behalf of a personal-injury law firm. Reply to routine check-ins, thanks, status questions and small talk. Do NOT reply when the message needs a human: legal questions, settlement talk, complaints, medical emergencies, or anything flagged.

Always respond with valid JSON. Do not include any text outside the JSON object.`

const respondUserPrompt = `Client context:
%s

Client message:
---
%s
---

Sentiment: %s, concern level: %s, flagged: %t

Decide. Fields:
- "should_respond": true or false
- "confidence": 0.0-1.0
- "reasoning": one sentence

Respond with JSON only:
{"should_respond":false,"confidence":0.0,"reasoning":"..."}`

const responseSystemPrompt = `You write a short, warm reply to a law firm client's text message, in the voice of their case team.

Rules:
- Never give legal advice, case value estimates, settlement figures, or timeline promises.
- Never promise outcomes. For legal questions, say their case manager will follow up.
- Be empathetic and specific to what the client said.
- Keep it under 300 characters, plain text, no emoji unless the client used them.
- Sign off naturally, no signatures or firm name.

Respond with the reply text only, no quotes, no JSON.`

const responseUserPrompt = `Client context:
%s

Recommended tone: %s

Client message:
---
%s
---

Write the reply.`

const triageOnceSystemPrompt = `You are the message triage assistant for a personal-injury law firm. You read one client message with context and decide the full handling in a single pass.

Always respond with valid JSON. Do not include any text outside the JSON object.`

const triageOnceUserPrompt = `Client context:
%s

Client message:
---
%s
---

Decide. Fields:
- "action": exactly one of "flag", "respond", "ignore"
- "should_respond": true or false
- "should_flag": true or false
- "risk_level": exactly one of "low", "medium", "high"
- "sentiment": exactly one of "positive", "neutral", "negative"
- "reasoning": one or two sentences
- "confidence": 0.0-1.0
- "detected_issues": issues a case manager should know about, empty array if none
- "recommended_response_tone": e.g. "empathetic", "reassuring", "neutral"

Respond with JSON only:
{"action":"...","should_respond":false,"should_flag":false,"risk_level":"...","sentiment":"...","reasoning":"...","confidence":0.0,"detected_issues":[...],"recommended_response_tone":"..."}`

const riskSystemPrompt = `You assess the relationship risk for one law firm client: how likely the firm is to lose this client's trust or business. You see their profile and recent conversation.

Always respond with valid JSON. Do not include any text outside the JSON object.`

const riskUserPrompt = `Client context:
%s

Recent messages (oldest first):
%s

Assess. Fields:
- "risk_level": exactly one of "low", "medium", "high"
- "risk_score": 0.0-10.0
- "primary_risk_factors": short phrases, empty array if none
- "sentiment_trend": one of "improving", "stable", "declining"
- "engagement_level": one of "high", "medium", "low"
- "recommendations": concrete next steps for the case team
- "urgency": one of "immediate", "soon", "routine"
- "confidence": 0.0-1.0

Respond with JSON only:
{"risk_level":"...","risk_score":0.0,"primary_risk_factors":[...],"sentiment_trend":"...","engagement_level":"...","recommendations":[...],"urgency":"...","confidence":0.0}`

const insightSystemPrompt = `You extract actionable insights from a law firm client's message for the case team's dashboard. Zero insights is a valid answer for routine messages.

Always respond with valid JSON. Do not include any text outside the JSON array.`

const insightUserPrompt = `Client context:
%s

Client message:
---
%s
---

Triage outcome: sentiment %s, concern %s, flagged %t

Extract 0-3 insights. Each insight has:
- "type": exactly one of "positive", "concern", "action_required"
- "category": one of "satisfaction", "communication", "case_concern", "medical", "financial"
- "message": one sentence a case manager reads on the dashboard
- "confidence": 0.0-1.0
- "supporting_evidence": phrases from the message
- "recommended_actions": what the team should do, empty array if none
- "priority": one of "low", "medium", "high"

Respond with a JSON array only:
[{"type":"...","category":"...","message":"...","confidence":0.0,"supporting_evidence":[...],"recommended_actions":[...],"priority":"..."}]`

const reportSystemPrompt = `You write the periodic client relationship report for a personal-injury law firm, based on the client's profile and their messages from the period.

Always respond with valid JSON. Do not include any text outside the JSON object.`

const reportUserPrompt = `Client context:
%s

Messages this period (oldest first):
%s

Write the report. Fields:
- "executive_summary": 2-4 sentences for the managing attorney
- "current_sentiment": one of "positive", "neutral", "negative"
- "key_concerns": short phrases, empty array if none
- "communication_style": one sentence describing how this client communicates
- "relationship_health": integer 1-10
- "action_items": concrete steps for the case team
- "warning_signs": early signals of trouble, empty array if none
- "strengths": what is going well in the relationship
- "next_contact_recommendation": when and how to reach out next
- "priority_level": one of "low", "medium", "high"

Respond with JSON only:
{"executive_summary":"...","current_sentiment":"...","key_concerns":[...],"communication_style":"...","relationship_health":5,"action_items":[...],"warning_signs":[...],"strengths":[...],"next_contact_recommendation":"...","priority_level":"..."}`

const checkinSystemPrompt = `You write a short proactive check-in text to a law firm client, in the voice of their case team.

Rules:
- Never give legal advice or mention settlement amounts or timelines.
- One or two sentences, under 200 characters, plain text.
- Ask how they are doing; reference their situation naturally, not clinically.

Respond with the message text only, no quotes, no JSON.`

const checkinUserPrompt = `Client context:
%s

Tone: %s

Write the check-in message.`
