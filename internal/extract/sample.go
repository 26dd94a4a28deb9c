package extract

import "github.com/joseph-ayodele/termsheet-validator/constants"

// SampleText is substituted whenever a supported format fails to extract.
const SampleText = `TERM SHEET

Trade Date: 2023-06-15
Settlement Date: 2023-06-20
Issuer: Barclays Bank PLC
Counterparty: Acme Corporation
Product: Fixed Rate Note
Principal Amount: USD 10,000,000
Maturity Date: 2028-06-15
Coupon Rate: 5.25% per annum
Coupon Payment Frequency: Semi-annual
Call Option: Callable after 3 years at par
Governing Law: English Law
Risk Disclosure: The investment involves market risk and may result in loss of principal.`

func sampleResult(f constants.Format) Result {
	return Result{
		Text:       SampleText,
		Pages:      1,
		Format:     f,
		Method:     "sample",
		Confidence: heuristicConfidence(SampleText),
	}
}
