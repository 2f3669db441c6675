// File: internal/browser/locator/targets.go
package locator

// RawFileInputXPath is the last-resort scan for any file input on the page,
// used when every registered file-input strategy fails.
const RawFileInputXPath = `(//input[@type='file'])[last()]`

// strategyTable holds the capability set per logical target, in priority
// order. The variants cover the data-testid, icon and aria-label spellings the
// client has shipped, in both English and Spanish UI languages.
var strategyTable = map[Target][]Strategy{
	TargetAuthenticated: {
		{Name: "chat-pane", XPath: `//div[@id='pane-side']`},
		{Name: "search-box", XPath: `//div[@role='textbox' and @contenteditable='true' and (contains(@aria-label,'Search') or contains(@aria-label,'Buscar'))]`},
	},
	TargetComposeBox: {
		{Name: "footer-textbox", XPath: `//footer//div[@role='textbox' and @contenteditable='true']`},
		{Name: "aria-label", XPath: `//div[@role='textbox' and @contenteditable='true' and (contains(@aria-label,'message') or contains(@aria-label,'mensaje') or contains(@aria-label,'Message'))]`},
		{Name: "data-tab", XPath: `//div[@contenteditable='true'][@data-tab='10']`},
	},
	TargetSendButton: {
		{Name: "testid-button", XPath: `//button[@data-testid='send']`},
		{Name: "testid-contains", XPath: `//button[contains(@data-testid,'send')]`},
		{Name: "icon", XPath: `//span[@data-icon='send']`},
		{Name: "testid-span", XPath: `//span[@data-testid='send']`},
		{Name: "role-button", XPath: `//div[@role='button' and (@aria-label='Send' or @aria-label='Enviar')]`},
		{Name: "aria-button", XPath: `//button[@aria-label='Send' or @aria-label='Enviar']`},
	},
	TargetAttachButton: {
		{Name: "clip-icon", XPath: `//span[@data-icon='clip']`},
		{Name: "clip-testid", XPath: `//span[@data-testid='clip']`},
		{Name: "role-button", XPath: `//div[@role='button' and (@aria-label='Attach' or @aria-label='Adjuntar')]`},
		{Name: "title-button", XPath: `//button[@title='Attach' or @title='Adjuntar']`},
		{Name: "title-div", XPath: `//div[@title='Attach' or @title='Adjuntar']`},
	},
	TargetFileInput: {
		{Name: "attach-doc", XPath: `//input[@type='file' and @data-testid='attach-doc']`},
		{Name: "attach-document", XPath: `//input[@type='file' and @data-testid='attach-document']`},
		{Name: "attach-file-input", XPath: `//input[@type='file' and @data-testid='attach-file-input']`},
		{Name: "accepting-input", XPath: `//input[@type='file' and @accept]`},
		{Name: "any-file-input", XPath: `//input[@type='file']`},
	},
	TargetCaptionBox: {
		{Name: "aria-label", XPath: `//div[@role='textbox' and @contenteditable='true' and (contains(@aria-label,'caption') or contains(@aria-label,'mensaje') or contains(@aria-label,'message') or contains(@aria-label,'Agregar un mensaje') or contains(@aria-label,'Add a caption'))]`},
		{Name: "testid-container", XPath: `//div[@contenteditable='true' and @data-testid='media-caption-input-container']`},
	},
	TargetMediaPreview: {
		{Name: "testid", XPath: `//div[@data-testid='media-preview']`},
		{Name: "class", XPath: `//div[contains(@class,'media-preview')]`},
		{Name: "testid-section", XPath: `//div[@data-testid='media-preview-section']`},
	},
}

// Strategies returns the ordered capability set registered for target.
func Strategies(target Target) []Strategy {
	return strategyTable[target]
}
