package review

// SchemaPromptSection describes the finding fields models must emit. It is
// substituted into the report prompt so the JSON contract lives in one place.
const SchemaPromptSection = `Each review object must contain exactly these fields:
- "issue": short title of the security issue found.
- "code_snippet": the exact vulnerable lines, copied verbatim from the code under review.
- "reasoning": why this code is vulnerable and how it could be exploited.
- "mitigation": a concrete change that removes or mitigates the vulnerability.
- "confidence": a number between 0 and 1 expressing how certain you are.
- "cwe": the CWE identifier in the form "CWE-N", or "CWE-Unknown" if none applies.
- "severity": one of "LOW", "MEDIUM", "HIGH", "CRITICAL".`
